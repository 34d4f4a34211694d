// Package rules is the scoring rules engine
// Everything here is pure: callers pass aggregate snapshots and the set of
// already awarded ids and get back what is newly due
package rules

import "fmt"

// Dimension is the closed set of progress axes a threshold can watch
type Dimension uint8

const (
	// DimensionPRs counts merged pull requests authored by the actor
	DimensionPRs Dimension = iota + 1
	// DimensionReviews counts submitted reviews
	DimensionReviews
	// DimensionStreak is the longest run of consecutive contribution days
	DimensionStreak
	// DimensionPoints is the running points total
	DimensionPoints
	// DimensionChallenges counts completed challenges
	DimensionChallenges
)

// Dimensions lists every dimension in evaluation order
var Dimensions = [...]Dimension{
	DimensionPRs,
	DimensionReviews,
	DimensionStreak,
	DimensionPoints,
	DimensionChallenges,
}

// String implements fmt.Stringer
func (d Dimension) String() string {
	switch d {
	case DimensionPRs:
		return "prs"
	case DimensionReviews:
		return "reviews"
	case DimensionStreak:
		return "streak"
	case DimensionPoints:
		return "points"
	case DimensionChallenges:
		return "challenges"
	}
	return fmt.Sprintf("dimension(%d)", uint8(d))
}

// Valid reports whether d is one of the declared dimensions
func (d Dimension) Valid() bool { return d >= DimensionPRs && d <= DimensionChallenges }

// ParseDimension maps a stored name back to a Dimension
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("rules: unknown dimension %q", s)
}

// Snapshot is the aggregate view of one actor the engine evaluates against
type Snapshot struct {
	PRCount       int
	ReviewCount   int
	CurrentStreak int
	LongestStreak int
	TotalPoints   int
	Challenges    int
}

// Value reads the counter a dimension watches
// streak uses the longest streak so a missed evaluation still catches up
func (s Snapshot) Value(d Dimension) int {
	switch d {
	case DimensionPRs:
		return s.PRCount
	case DimensionReviews:
		return s.ReviewCount
	case DimensionStreak:
		return max(s.LongestStreak, s.CurrentStreak)
	case DimensionPoints:
		return s.TotalPoints
	case DimensionChallenges:
		return s.Challenges
	}
	return 0
}
