package rules

import (
	"fmt"
	"slices"
)

// Kind separates reward bearing achievements from plain badges
type Kind uint8

const (
	// KindAchievement carries a point reward
	KindAchievement Kind = iota + 1
	// KindBadge is a display milestone without reward
	KindBadge
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindAchievement:
		return "achievement"
	case KindBadge:
		return "badge"
	}
	return "unknown"
}

// Threshold is one unlockable tier
type Threshold struct {
	ID        string
	Name      string
	Dimension Dimension
	Kind      Kind
	Value     int
	Reward    int
}

// Table holds thresholds grouped per dimension in ascending order
type Table struct {
	byDim map[Dimension][]Threshold
	byID  map[string]Threshold
}

// NewTable validates and indexes ts
// ids must be unique and every dimension must be declared
func NewTable(ts []Threshold) (*Table, error) {
	t := &Table{
		byDim: make(map[Dimension][]Threshold, len(Dimensions)),
		byID:  make(map[string]Threshold, len(ts)),
	}
	for _, th := range ts {
		if !th.Dimension.Valid() {
			return nil, fmt.Errorf("rules: threshold %q has invalid dimension", th.ID)
		}
		if th.ID == "" || th.Value <= 0 {
			return nil, fmt.Errorf("rules: threshold %q needs an id and a positive value", th.ID)
		}
		if _, dup := t.byID[th.ID]; dup {
			return nil, fmt.Errorf("rules: duplicate threshold id %q", th.ID)
		}
		t.byID[th.ID] = th
		t.byDim[th.Dimension] = append(t.byDim[th.Dimension], th)
	}
	for d := range t.byDim {
		slices.SortStableFunc(t.byDim[d], func(a, b Threshold) int { return a.Value - b.Value })
	}
	return t, nil
}

// MustTable panics on an invalid table
func MustTable(ts []Threshold) *Table {
	t, err := NewTable(ts)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the threshold with id
func (t *Table) Lookup(id string) (Threshold, bool) {
	th, ok := t.byID[id]
	return th, ok
}

// For returns the ordered thresholds of a dimension
func (t *Table) For(d Dimension) []Threshold { return t.byDim[d] }

// DefaultThresholds is the built in achievement and badge table
func DefaultThresholds() []Threshold {
	out := []Threshold{
		{ID: "first-pr", Name: "First Steps", Dimension: DimensionPRs, Kind: KindAchievement, Value: 1, Reward: 50},
		{ID: "pr-10", Name: "Getting Started", Dimension: DimensionPRs, Kind: KindAchievement, Value: 10, Reward: 100},
		{ID: "pr-50", Name: "Contributor", Dimension: DimensionPRs, Kind: KindAchievement, Value: 50, Reward: 250},
		{ID: "pr-100", Name: "Dedicated", Dimension: DimensionPRs, Kind: KindAchievement, Value: 100, Reward: 500},
		{ID: "pr-500", Name: "Elite", Dimension: DimensionPRs, Kind: KindAchievement, Value: 500, Reward: 1000},
		{ID: "pr-1000", Name: "Legend", Dimension: DimensionPRs, Kind: KindAchievement, Value: 1000, Reward: 2000},

		{ID: "reviews-10", Name: "Helpful Reviewer", Dimension: DimensionReviews, Kind: KindAchievement, Value: 10, Reward: 75},
		{ID: "reviews-50", Name: "Review Expert", Dimension: DimensionReviews, Kind: KindAchievement, Value: 50, Reward: 200},
		{ID: "reviews-100", Name: "Review Master", Dimension: DimensionReviews, Kind: KindAchievement, Value: 100, Reward: 400},

		{ID: "streak-7", Name: "Week Warrior", Dimension: DimensionStreak, Kind: KindAchievement, Value: 7, Reward: 100},
		{ID: "streak-30", Name: "Monthly Master", Dimension: DimensionStreak, Kind: KindAchievement, Value: 30, Reward: 300},
		{ID: "streak-90", Name: "Quarter Champion", Dimension: DimensionStreak, Kind: KindAchievement, Value: 90, Reward: 750},
		{ID: "streak-365", Name: "Year-Long Hero", Dimension: DimensionStreak, Kind: KindAchievement, Value: 365, Reward: 2000},

		{ID: "points-1000", Name: "Point Collector", Dimension: DimensionPoints, Kind: KindAchievement, Value: 1000, Reward: 100},
		{ID: "points-5000", Name: "Point Hoarder", Dimension: DimensionPoints, Kind: KindAchievement, Value: 5000, Reward: 300},
		{ID: "points-10000", Name: "Point Master", Dimension: DimensionPoints, Kind: KindAchievement, Value: 10000, Reward: 500},

		{ID: "challenge-1", Name: "Challenge Accepted", Dimension: DimensionChallenges, Kind: KindAchievement, Value: 1, Reward: 100},
		{ID: "challenge-5", Name: "Challenge Seeker", Dimension: DimensionChallenges, Kind: KindAchievement, Value: 5, Reward: 250},
		{ID: "challenge-10", Name: "Challenge Champion", Dimension: DimensionChallenges, Kind: KindAchievement, Value: 10, Reward: 500},
	}
	for _, n := range []int{1, 10, 50, 100, 500, 1000} {
		out = append(out,
			Threshold{ID: fmt.Sprintf("pr-badge-%d", n), Name: fmt.Sprintf("%d PRs", n), Dimension: DimensionPRs, Kind: KindBadge, Value: n},
			Threshold{ID: fmt.Sprintf("review-badge-%d", n), Name: fmt.Sprintf("%d Reviews", n), Dimension: DimensionReviews, Kind: KindBadge, Value: n},
		)
	}
	return out
}
