// Package api provides the HTTP API for the application
package api

import (
	"context"
	"net/http"

	"scorekeeper/internal/core/events"
	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	phttp "scorekeeper/internal/platform/net/http"
	"scorekeeper/internal/platform/net/middleware"
	"scorekeeper/internal/platform/store"

	"scorekeeper/internal/modkit"
	"scorekeeper/internal/modkit/httpkit"
	"scorekeeper/internal/modkit/module"
	"scorekeeper/internal/modkit/swaggerkit"

	metamod "scorekeeper/internal/services/api/meta/module"
	scoremod "scorekeeper/internal/services/scoring/module"
	scorerepo "scorekeeper/internal/services/scoring/repo"
	syncmod "scorekeeper/internal/services/sync/module"
	syncrepo "scorekeeper/internal/services/sync/repo"
	syncsvc "scorekeeper/internal/services/sync/service"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Metrics        *metrics.Manager
	EnableSwagger  bool
	EnableProfiler bool
}

// Runtime is what the binary keeps after mounting
type Runtime struct {
	Scheduler *syncsvc.Scheduler
	Events    *events.Hub
	// Close stops background sync runs
	Close func()
}

// Hub builds the event hub: always logged, mirrored into ClickHouse when it is configured
func Hub(st *store.Store, l *logger.Logger) *events.Hub {
	h := events.NewHub(events.LogSink{Log: l})
	if st != nil && st.CH != nil {
		h.Add(events.ClickhouseSink{CH: st.CH, SkipProgress: true})
	}
	return h
}

// Migrate applies every service schema in one transaction
func Migrate(ctx context.Context, db store.TxRunner) error {
	return db.Tx(ctx, func(q store.RowQuerier) error {
		if err := scorerepo.Migrate(ctx, q); err != nil {
			return err
		}
		return syncrepo.Migrate(ctx, q)
	})
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) Runtime {
	st := opt.Store
	if st == nil {
		st = &store.Store{}
	}
	hub := Hub(st, opt.Logger)

	// shared deps for modules
	deps := modkit.Deps{
		Cfg:     opt.Config,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: opt.Metrics,
		Events:  hub,
	}

	// scoring owns the ledger; its port is injected into sync
	scoring := scoremod.New(deps)
	sc := module.MustPortsOf[scoremod.Ports](scoring).Scoring

	syncing := syncmod.New(deps, modkit.WithPorts(syncmod.Ports{Scoring: sc}))
	sp := module.MustPortsOf[syncmod.Ports](syncing)

	reg := module.NewRegistry()
	mods := []module.Module{
		metamod.New(deps, reg.Names),
		scoring,
		syncing,
	}

	r.Handle("/health", middleware.Heartbeat("/health")(http.NotFoundHandler()))
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Config), func(api httpkit.Router) {
		for _, m := range mods {
			reg.Add(m)
			m.MountRoutes(api)
		}
	})

	return Runtime{Scheduler: sp.Scheduler, Events: hub, Close: sp.Close}
}
