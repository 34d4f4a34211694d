package domain

import (
	"context"
	"time"

	scoring "scorekeeper/internal/services/scoring/domain"
)

// Source is the external host listing, review and quota surface
type Source interface {
	// ListClosed returns one page of closed items, most recently updated first
	ListClosed(ctx context.Context, page, perPage int) ([]Item, error)
	Item(ctx context.Context, number int) (Item, error)
	Reviews(ctx context.Context, number int) ([]Review, error)
	RateLimit(ctx context.Context) (Budget, error)
}

// RunLock serializes runs across every trigger
type RunLock interface {
	// TryAcquire returns ok=false when another run holds the lock
	TryAcquire(ctx context.Context, runID string) (release func(), ok bool, err error)
}

// Scoring is what a run writes through
type Scoring interface {
	scoring.ProjectorPort
	scoring.WatermarkPort
}

// RunnerPort is the sync surface exposed to transports and the scheduler
type RunnerPort interface {
	// StartSync launches a backfill in the background
	StartSync(ctx context.Context, start, end time.Time) (Result, error)
	// StartIncremental launches a watermark bounded run in the background
	StartIncremental(ctx context.Context) (Result, error)
	// StartRecount launches a single item run in the background
	StartRecount(ctx context.Context, number int) (Result, error)
	StopSync() Result
	Status() RunState

	// Run variants block until the run ends
	RunSync(ctx context.Context, start, end time.Time) (RunState, error)
	RunIncremental(ctx context.Context) (RunState, error)
	RecountItem(ctx context.Context, number int) (RunState, error)
}
