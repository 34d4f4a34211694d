// @title         Scorekeeper API
// @version       0.1.0
// @description   Contribution sync control and scoring read models

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	phttp "scorekeeper/internal/platform/net/http"
	"scorekeeper/internal/platform/store"
	"scorekeeper/internal/services/api"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	// open the platform store (postgres + optional CH mirror)
	st, err := store.Open(ctx, store.FromConfig(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if root.Prefix("SERVICE_PGSQL_").MayBool("MIGRATE", true) {
		if err := api.Migrate(ctx, st.PG); err != nil {
			l.Panic().Err(err).Msg("schema migration failed")
		}
	}

	// http server (reads CORE_API_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount our API; scoring and sync share one config root
	rt := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			Metrics:        metrics.Default(),
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	defer rt.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		// the scheduler shares the run lock with the HTTP triggers
		if err := rt.Scheduler.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("api stopped")
		return
	}
	l.Info().Msg("api shut down")
}
