// Package module wires sync into the API using modkit
package module

import (
	gh "scorekeeper/internal/adapters/ingest/github"
	"scorekeeper/internal/core/version"
	modkit "scorekeeper/internal/modkit"
	"scorekeeper/internal/modkit/httpkit"
	"scorekeeper/internal/platform/logger"
	str "scorekeeper/internal/platform/strings"
	"scorekeeper/internal/services/sync/domain"
	synchttp "scorekeeper/internal/services/sync/http"
	"scorekeeper/internal/services/sync/ingest"
	"scorekeeper/internal/services/sync/repo"
	"scorekeeper/internal/services/sync/service"
)

// Ports declares the injected scoring port and the exposed runner
type Ports struct {
	Scoring   domain.Scoring
	Runner    domain.RunnerPort
	Scheduler *service.Scheduler
	// Close stops background runs
	Close func()
}

// Module implements the sync module
type Module struct {
	b     modkit.Built
	ports Ports
	orch  *service.Orchestrator
}

// New constructs the sync module
// the scoring port must be injected with modkit.WithPorts(Ports{Scoring: ...})
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("sync"), modkit.WithPrefix("/sync")}, opts...)...)
	in, _ := b.Ports.(Ports)
	if in.Scoring == nil {
		panic("sync module requires an injected Scoring port")
	}
	o := FromConfig(deps.Cfg)
	if o.GitHub.Owner == "" || o.GitHub.Repo == "" {
		logger.Named("sync").Warn().Msg("CORE_GITHUB_OWNER or CORE_GITHUB_REPO unset, runs will fail")
	}
	o.GitHub.UserAgent = version.UserAgent("scorekeeper")
	if deps.Metrics != nil {
		o.GitHub.Observer = deps.Metrics
	}
	src := ingest.NewGitHub(gh.NewClient(o.GitHub))

	orch := service.New(src, in.Scoring, Lock(deps, o), o.Sync,
		service.WithEvents(deps.Emitter()),
		service.WithMetrics(deps.Metrics),
	)

	return &Module{
		b:    b,
		orch: orch,
		ports: Ports{
			Scoring:   in.Scoring,
			Runner:    orch,
			Scheduler: service.NewScheduler(orch, o.Schedule),
			Close:     orch.Close,
		},
	}
}

// Lock builds the run lock: always in process, plus a Postgres lease whenever a
// database is wired so the API and admin processes exclude each other
func Lock(deps modkit.Deps, o Options) domain.RunLock {
	local := service.NewLocalLock()
	if !o.DistributedLock || deps.PG == nil {
		return local
	}
	return service.ChainLock{local, repo.NewLeaseLock(deps.PG, "sync", o.LeaseTTL)}
}

// MountRoutes mounts the sync routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { synchttp.Register(rr, m.orch) })
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }
