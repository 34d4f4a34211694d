package modkit

import "net/http"

// Option mutates build configuration for a module
type Option func(*Built)

// WithName sets a module name used in logs and the registry
func WithName(name string) Option {
	return func(b *Built) { b.Name = name }
}

// WithPrefix mounts a module under a path prefix
func WithPrefix(prefix string) Option {
	return func(b *Built) { b.Prefix = prefix }
}

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts injects ports another module exposes, the importing module owns the type
func WithPorts[T any](p T) Option {
	return func(b *Built) { b.Ports = p }
}
