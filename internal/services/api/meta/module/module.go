// Package module wires meta endpoints into the API
package module

import (
	"time"

	modkit "scorekeeper/internal/modkit"
	"scorekeeper/internal/modkit/httpkit"
	str "scorekeeper/internal/platform/strings"

	metahttp "scorekeeper/internal/services/api/meta/http"
)

// Module implements the meta module
type Module struct {
	b    modkit.Built
	deps metahttp.Deps
}

// New constructs the meta module, modules lists mounted module names and may be nil
func New(deps modkit.Deps, modules func() []string, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)
	return &Module{
		b: b,
		deps: metahttp.Deps{
			ServiceName: "scorekeeper-api",
			StartedAt:   time.Now(),
			PG:          pinger(deps.PG),
			CH:          pinger(deps.CH),
			Modules:     modules,
		},
	}
}

// pinger returns v as a Pinger, nil when v is unset or cannot be probed
func pinger(v any) metahttp.Pinger {
	p, _ := v.(metahttp.Pinger)
	return p
}

// MountRoutes mounts the meta routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }

// Ports returns nil, meta exposes nothing to other modules
func (m *Module) Ports() any { return nil }
