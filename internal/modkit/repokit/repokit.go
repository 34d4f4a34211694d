// Package repokit holds the seams repositories are written against
package repokit

import "scorekeeper/internal/platform/store"

type (
	// Queryer is the read and write surface a repository binds to
	Queryer = store.RowQuerier

	// TxRunner runs a function inside a transaction
	TxRunner = store.TxRunner
)

// Binder binds a domain repository to a Queryer, usually a live transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a function to a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
