package repo

import (
	"context"

	"scorekeeper/internal/modkit/repokit"
	"scorekeeper/internal/services/scoring/domain"
)

// TxStore runs a bound Ledger inside a TxRunner transaction
type TxStore struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Ledger]
}

var _ domain.Store = (*TxStore)(nil)

// NewTxStore constructs a TxStore
func NewTxStore(db repokit.TxRunner, binder repokit.Binder[domain.Ledger]) *TxStore {
	if db == nil {
		panic("scoring.TxStore requires a non nil TxRunner")
	}
	if binder == nil {
		panic("scoring.TxStore requires a non nil Ledger binder")
	}
	return &TxStore{db: db, binder: binder}
}

// Tx implements domain.Store
func (s *TxStore) Tx(ctx context.Context, fn func(l domain.Ledger) error) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return fn(s.binder.Bind(q))
	})
}
