// Package repo holds the distributed run lease for sync
package repo

import (
	"context"
	_ "embed"
	"sync"
	"time"

	"scorekeeper/internal/modkit/repokit"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/services/sync/domain"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the lease table
func Migrate(ctx context.Context, q repokit.Queryer) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return perr.FromPostgres(err, "sync: migrate")
	}
	return nil
}

// LeaseLock is a Postgres row lease shared by every process on one database
// an expired lease is taken over, a live holder refreshes it at ttl/3
type LeaseLock struct {
	db   repokit.TxRunner
	name string
	ttl  time.Duration
	log  logger.Logger
}

var _ domain.RunLock = (*LeaseLock)(nil)

// NewLeaseLock constructs a LeaseLock
func NewLeaseLock(db repokit.TxRunner, name string, ttl time.Duration) *LeaseLock {
	if db == nil {
		panic("sync.LeaseLock requires a non nil TxRunner")
	}
	if name == "" {
		name = "sync"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LeaseLock{db: db, name: name, ttl: ttl, log: *logger.Named("sync-lease")}
}

// TryAcquire implements domain.RunLock
func (l *LeaseLock) TryAcquire(ctx context.Context, runID string) (func(), bool, error) {
	var claimed bool
	err := l.db.Tx(ctx, func(q repokit.Queryer) error {
		rows, err := q.Query(ctx, `
			INSERT INTO sync_run_leases (name, holder, expires_at)
			VALUES ($1, $2, now() + make_interval(secs => $3))
			ON CONFLICT (name) DO UPDATE
				SET holder = EXCLUDED.holder, acquired_at = now(), expires_at = EXCLUDED.expires_at
				WHERE sync_run_leases.expires_at < now()
			RETURNING true`, l.name, runID, l.ttl.Seconds())
		if err != nil {
			return err
		}
		defer rows.Close()
		claimed = rows.Next()
		return rows.Err()
	})
	if err != nil {
		return nil, false, perr.FromPostgres(err, "sync: acquire lease")
	}
	if !claimed {
		return nil, false, nil
	}

	hbCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.heartbeat(hbCtx, runID)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			wg.Wait()
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := l.db.Tx(rctx, func(q repokit.Queryer) error {
				_, err := q.Exec(rctx, `DELETE FROM sync_run_leases WHERE name = $1 AND holder = $2`, l.name, runID)
				return err
			})
			if err != nil {
				l.log.Error().Err(err).Str("run_id", runID).Msg("lease release failed, it expires on its own")
			}
		})
	}, true, nil
}

func (l *LeaseLock) heartbeat(ctx context.Context, runID string) {
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := l.db.Tx(ctx, func(q repokit.Queryer) error {
				_, err := q.Exec(ctx, `
					UPDATE sync_run_leases SET expires_at = now() + make_interval(secs => $3)
					WHERE name = $1 AND holder = $2`, l.name, runID, l.ttl.Seconds())
				return err
			})
			if err != nil && ctx.Err() == nil {
				l.log.Warn().Err(err).Str("run_id", runID).Msg("lease refresh failed")
			}
		}
	}
}
