package main

import (
	"context"

	"scorekeeper/internal/modkit"
	"scorekeeper/internal/modkit/module"
	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	"scorekeeper/internal/platform/store"
	"scorekeeper/internal/services/api"
	scoring "scorekeeper/internal/services/scoring/domain"
	scoremod "scorekeeper/internal/services/scoring/module"
	syncdomain "scorekeeper/internal/services/sync/domain"
	syncmod "scorekeeper/internal/services/sync/module"
)

// env is everything a command may touch
type env struct {
	scoring scoring.ServicePort
	runner  syncdomain.RunnerPort
	migrate func(context.Context) error
	close   func()
}

// openEnv connects the store and wires the same modules the API serves
func openEnv(ctx context.Context) (*env, error) {
	root := config.New()
	l := logger.Get()

	st, err := store.Open(ctx, store.FromConfig(root, "admin"), store.WithLogger(*l))
	if err != nil {
		return nil, err
	}

	deps := modkit.Deps{
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: metrics.Default(),
		Events:  api.Hub(st, l),
	}
	sc := module.MustPortsOf[scoremod.Ports](scoremod.New(deps)).Scoring
	sp := module.MustPortsOf[syncmod.Ports](syncmod.New(deps, modkit.WithPorts(syncmod.Ports{Scoring: sc})))

	return &env{
		scoring: sc,
		runner:  sp.Runner,
		migrate: func(ctx context.Context) error { return api.Migrate(ctx, st.PG) },
		close: func() {
			sp.Close()
			if err := st.Close(context.Background()); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		},
	}, nil
}
