package rules

import (
	"math"
	"slices"
	"strings"
)

// Point reasons recorded on points entries
const (
	ReasonPRMerged          = "PR Merged"
	ReasonReviewCompleted   = "Review Completed"
	ReasonChallengeComplete = "Challenge Completed"
	ReasonStreakBonus       = "Streak Bonus"
	ReasonAchievement       = "Achievement Unlocked"
)

// PointValues are the base points per label category
type PointValues struct {
	Bug           int `koanf:"bug"`
	Feature       int `koanf:"feature"`
	Enhancement   int `koanf:"enhancement"`
	Documentation int `koanf:"documentation"`
	Refactor      int `koanf:"refactor"`
	Hotfix        int `koanf:"hotfix"`
	Default       int `koanf:"default"`
	Review        int `koanf:"review"`
}

// DefaultPointValues returns the built in point values
func DefaultPointValues() PointValues {
	return PointValues{
		Bug:           50,
		Feature:       100,
		Enhancement:   75,
		Documentation: 30,
		Refactor:      60,
		Hotfix:        80,
		Default:       40,
		Review:        15,
	}
}

// Multiplier scales PR points once a streak reaches MinDays
type Multiplier struct {
	MinDays int     `koanf:"min_days"`
	Factor  float64 `koanf:"factor"`
}

// DefaultMultipliers returns the built in streak tiers
func DefaultMultipliers() []Multiplier {
	return []Multiplier{
		{MinDays: 7, Factor: 1.1},
		{MinDays: 30, Factor: 1.25},
		{MinDays: 90, Factor: 1.5},
		{MinDays: 365, Factor: 2.0},
	}
}

// category matchers in priority order, first hit wins
var categories = []struct {
	name  string
	needs []string
	pick  func(PointValues) int
}{
	{"hotfix", []string{"hotfix"}, func(p PointValues) int { return p.Hotfix }},
	{"bug", []string{"bug", "fix"}, func(p PointValues) int { return p.Bug }},
	{"feature", []string{"feature"}, func(p PointValues) int { return p.Feature }},
	{"enhancement", []string{"enhancement", "improve"}, func(p PointValues) int { return p.Enhancement }},
	{"refactor", []string{"refactor"}, func(p PointValues) int { return p.Refactor }},
	{"documentation", []string{"doc"}, func(p PointValues) int { return p.Documentation }},
}

// ForLabels picks base points and the category name for a label set
// matching is a case insensitive substring test
func (p PointValues) ForLabels(labels []string) (int, string) {
	lower := make([]string, 0, len(labels))
	for _, l := range labels {
		lower = append(lower, strings.ToLower(l))
	}
	for _, c := range categories {
		for _, l := range lower {
			for _, n := range c.needs {
				if strings.Contains(l, n) {
					return c.pick(p), c.name
				}
			}
		}
	}
	return p.Default, "default"
}

// StreakFactor returns the factor of the highest tier streak has reached
func StreakFactor(streak int, tiers []Multiplier) float64 {
	f := 1.0
	best := -1
	for _, m := range tiers {
		if streak >= m.MinDays && m.MinDays > best {
			best, f = m.MinDays, m.Factor
		}
	}
	return f
}

// Scorer turns label sets and streaks into points
type Scorer struct {
	Points      PointValues
	Multipliers []Multiplier
}

// NewScorer copies and orders the multiplier tiers
func NewScorer(p PointValues, ms []Multiplier) Scorer {
	tiers := slices.Clone(ms)
	slices.SortFunc(tiers, func(a, b Multiplier) int { return a.MinDays - b.MinDays })
	return Scorer{Points: p, Multipliers: tiers}
}

// PR returns the points for a merged PR given the actor's streak after it landed
func (s Scorer) PR(labels []string, streak int) (int, string) {
	base, cat := s.Points.ForLabels(labels)
	return int(math.Round(float64(base) * StreakFactor(streak, s.Multipliers))), cat
}

// Review returns the points for one counted review
func (s Scorer) Review() int { return s.Points.Review }
