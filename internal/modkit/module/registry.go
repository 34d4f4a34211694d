package module

import (
	"slices"
	"sync"
)

// Registry records mounted modules by name in mount order
type Registry struct {
	mu    sync.RWMutex
	names []string
	ports map[string]any
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{ports: map[string]any{}}
}

// Add records m, a repeated name replaces the earlier ports and keeps its position
func (r *Registry) Add(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := m.Name()
	if _, ok := r.ports[name]; !ok {
		r.names = append(r.names, name)
	}
	r.ports[name] = m.Ports()
}

// Names lists registered module names in mount order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// PortsAs fetches the port set registered under name as T
func PortsAs[T any](r *Registry, name string) (T, bool) {
	r.mu.RLock()
	v, ok := r.ports[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}
