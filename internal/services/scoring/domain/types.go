// Package domain holds the scoring types and ports
package domain

import (
	"time"

	"scorekeeper/internal/core/rules"

	"github.com/google/uuid"
)

// Role distinguishes how an actor took part in an item
type Role string

// RoleAuthor is the only role counted toward prCount today
const RoleAuthor Role = "author"

// Actor is a contributor with denormalized aggregates
type Actor struct {
	Login             string     `json:"login"`
	PRCount           int        `json:"prCount"`
	ReviewCount       int        `json:"reviewCount"`
	TotalPoints       int        `json:"totalPoints"`
	CurrentStreak     int        `json:"currentStreak"`
	LongestStreak     int        `json:"longestStreak"`
	LastContribution  *time.Time `json:"lastContributionDay,omitempty"`
	TotalBillsAwarded int        `json:"totalBillsAwarded"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Streak returns the actor's streak state
func (a Actor) Streak() rules.Streak {
	s := rules.Streak{Current: a.CurrentStreak, Longest: a.LongestStreak}
	if a.LastContribution != nil {
		s.LastDay = *a.LastContribution
	}
	return s
}

// SetStreak copies s back onto the actor
func (a *Actor) SetStreak(s rules.Streak) {
	a.CurrentStreak, a.LongestStreak = s.Current, s.Longest
	if s.LastDay.IsZero() {
		a.LastContribution = nil
		return
	}
	d := s.LastDay
	a.LastContribution = &d
}

// Snapshot builds the rules engine view
func (a Actor) Snapshot(challenges int) rules.Snapshot {
	return rules.Snapshot{
		PRCount:       a.PRCount,
		ReviewCount:   a.ReviewCount,
		CurrentStreak: a.CurrentStreak,
		LongestStreak: a.LongestStreak,
		TotalPoints:   a.TotalPoints,
		Challenges:    challenges,
	}
}

// Contribution is one authored item observed by the fetcher
type Contribution struct {
	ItemID   int64
	Actor    string
	Role     Role
	Title    string
	Labels   []string
	MergedAt time.Time
}

// ReviewEvent is one submitted review on an item
type ReviewEvent struct {
	ItemID      int64
	ReviewID    int64
	Actor       string
	State       string
	SubmittedAt time.Time
}

// PointsEntry is an immutable points ledger row
type PointsEntry struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	ItemID    *int64    `json:"relatedItemId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Unlock is a badge or achievement granted once per actor
type Unlock struct {
	Actor     string          `json:"actor"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      rules.Kind      `json:"-"`
	Dimension rules.Dimension `json:"-"`
	Reward    int             `json:"reward"`
	EarnedAt  time.Time       `json:"earnedAt"`
}

// BillGrant is one unit batch of reward currency
type BillGrant struct {
	Actor     string    `json:"actor"`
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Units     int       `json:"units"`
	GrantedAt time.Time `json:"grantedAt"`
}

// ChallengeCompletion records one finished challenge
type ChallengeCompletion struct {
	Actor       string    `json:"actor"`
	ChallengeID string    `json:"challengeId"`
	Reward      int       `json:"reward"`
	CompletedAt time.Time `json:"completedAt"`
}

// LedgerCounts are the authoritative sizes behind an actor's aggregates
type LedgerCounts struct {
	Contributions int
	Reviews       int
	PointsSum     int
	BillUnits     int
}

// DriftReport compares aggregates to the ledger for one actor
type DriftReport struct {
	Actor         string `json:"actor"`
	PRCount       int    `json:"prCount"`
	Contributions int    `json:"processedContributions"`
	ReviewCount   int    `json:"reviewCount"`
	Reviews       int    `json:"processedReviews"`
	TotalPoints   int    `json:"totalPoints"`
	PointsSum     int    `json:"pointsSum"`
}

// Drifted reports whether any aggregate disagrees with the ledger
func (r DriftReport) Drifted() bool {
	return r.PRCount != r.Contributions || r.ReviewCount != r.Reviews || r.TotalPoints != r.PointsSum
}

// ApplyResult describes what one apply call changed
type ApplyResult struct {
	Applied bool               `json:"applied"`
	Points  int                `json:"points"`
	Streak  rules.StreakChange `json:"-"`
	Unlocks []Unlock           `json:"unlocks,omitempty"`
	Bills   []BillGrant        `json:"bills,omitempty"`
}

// ActorView is the read model served to collaborators
type ActorView struct {
	Actor      Actor                 `json:"actor"`
	Unlocks    []Unlock              `json:"unlocks"`
	Bills      []BillGrant           `json:"bills"`
	Challenges []ChallengeCompletion `json:"challenges"`
}
