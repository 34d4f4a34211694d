// Package module wires scoring into the API using modkit
package module

import (
	"scorekeeper/internal/core/rules"
	modkit "scorekeeper/internal/modkit"
	"scorekeeper/internal/modkit/httpkit"
	"scorekeeper/internal/platform/logger"
	str "scorekeeper/internal/platform/strings"
	"scorekeeper/internal/services/scoring/domain"
	scorehttp "scorekeeper/internal/services/scoring/http"
	"scorekeeper/internal/services/scoring/repo"
	"scorekeeper/internal/services/scoring/service"
)

// Ports exposes the scoring surface to other modules
type Ports struct {
	Scoring domain.ServicePort
}

// Module implements the scoring module
type Module struct {
	b     modkit.Built
	ports Ports
	svc   *service.Service
}

// New constructs the scoring module
// a bad rules file or a missing PG runner is fatal
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("scoring"), modkit.WithPrefix("/scoring")}, opts...)...)
	o := FromConfig(deps.Cfg)
	log := logger.Named("scoring")

	engine, err := NewEngine(o)
	if err != nil {
		log.Panic().Err(err).Str("rules_file", o.RulesFile).Msg("scoring rules invalid")
	}

	// the in memory store copies its data on every transaction and is for tests only
	if deps.PG == nil {
		log.Panic().Msg("scoring requires a postgres runner")
	}
	store := repo.NewTxStore(deps.PG, repo.NewPG())

	svc := service.New(store, engine,
		service.Config{TxRetries: o.TxRetries, RetryBase: o.RetryBase},
		service.WithEvents(deps.Emitter()),
		service.WithMetrics(deps.Metrics),
	)
	return &Module{b: b, svc: svc, ports: Ports{Scoring: svc}}
}

// NewEngine builds the rules engine from module options
func NewEngine(o Options) (*rules.Engine, error) {
	ov, err := rules.LoadOverrides(o.RulesFile)
	if err != nil {
		return nil, err
	}
	return rules.NewEngine(
		rules.WithOverrides(ov),
		rules.WithTimezone(o.Timezone),
		rules.WithSkipBots(o.SkipBots),
	), nil
}

// MountRoutes mounts the scoring routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { scorehttp.Register(rr, m.svc) })
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }
