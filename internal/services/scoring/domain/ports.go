package domain

import (
	"context"
	"time"
)

// Ledger is the unit of work surface bound to one transaction
// Every write made through one Ledger commits or rolls back together
type Ledger interface {
	// EnsureActor creates the actor on first sight and locks its row
	EnsureActor(ctx context.Context, login string, at time.Time) (Actor, error)
	GetActor(ctx context.Context, login string) (Actor, error)
	SaveActor(ctx context.Context, a Actor) error
	ListActors(ctx context.Context) ([]string, error)

	// RecordContribution returns false when (actor, item, role) was already recorded
	RecordContribution(ctx context.Context, login string, itemID int64, role Role, at time.Time) (bool, error)
	// RecordReview returns false when (actor, item, review) was already recorded
	RecordReview(ctx context.Context, login string, itemID, reviewID int64, at time.Time) (bool, error)
	// HasContribution and HasReview read the ledger without writing, Record* stay authoritative
	HasContribution(ctx context.Context, login string, itemID int64, role Role) (bool, error)
	HasReview(ctx context.Context, login string, itemID, reviewID int64) (bool, error)
	ContributionTimes(ctx context.Context, login string) ([]time.Time, error)

	AppendPoints(ctx context.Context, e PointsEntry) error
	PointsBetween(ctx context.Context, login string, from, to time.Time) ([]PointsEntry, error)

	Unlocks(ctx context.Context, login string) ([]Unlock, error)
	// InsertUnlock returns false when the id was already unlocked
	InsertUnlock(ctx context.Context, u Unlock) (bool, error)

	Bills(ctx context.Context, login string) ([]BillGrant, error)
	InsertBill(ctx context.Context, b BillGrant) (bool, error)

	Challenges(ctx context.Context, login string) ([]ChallengeCompletion, error)
	InsertChallenge(ctx context.Context, c ChallengeCompletion) (bool, error)

	Counts(ctx context.Context, login string) (LedgerCounts, error)

	Watermark(ctx context.Context) (time.Time, bool, error)
	SetWatermark(ctx context.Context, t time.Time) error

	// DeleteActor removes the actor with every ledger and derived row
	DeleteActor(ctx context.Context, login string) error
	DeleteAll(ctx context.Context) error
}

// Store opens transactions over a Ledger
type Store interface {
	Tx(ctx context.Context, fn func(l Ledger) error) error
}

// ProjectorPort is what the sync orchestrator drives
type ProjectorPort interface {
	ApplyContribution(ctx context.Context, c Contribution) (ApplyResult, error)
	ApplyReview(ctx context.Context, r ReviewEvent) (ApplyResult, error)
}

// WatermarkPort persists the incremental fetch position
type WatermarkPort interface {
	Watermark(ctx context.Context) (time.Time, bool, error)
	SetWatermark(ctx context.Context, t time.Time) error
}

// AdminPort covers integrity and maintenance operations
type AdminPort interface {
	Reconcile(ctx context.Context, login string) ([]DriftReport, error)
	Rebuild(ctx context.Context, login string) (Actor, error)
	Reset(ctx context.Context, login string) error
	ResetAll(ctx context.Context) error
}

// QueryPort serves read only collaborators
type QueryPort interface {
	Actor(ctx context.Context, login string) (ActorView, error)
	Points(ctx context.Context, login string, from, to time.Time) ([]PointsEntry, error)
}

// ChallengePort records challenge completions
type ChallengePort interface {
	CompleteChallenge(ctx context.Context, login, challengeID string, reward int, at time.Time) (ApplyResult, error)
}

// ServicePort is the full scoring surface
type ServicePort interface {
	ProjectorPort
	WatermarkPort
	AdminPort
	QueryPort
	ChallengePort
}
