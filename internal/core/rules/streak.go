package rules

import (
	"slices"
	"time"

	ptime "scorekeeper/internal/platform/time"
)

// Streak tracks consecutive contribution days in one time zone
type Streak struct {
	Current int
	Longest int
	// LastDay is midnight of the last contribution day, zero when none
	LastDay time.Time
}

// StreakChange describes what Advance did
type StreakChange uint8

const (
	// StreakUnchanged covers same day and older than last day events
	StreakUnchanged StreakChange = iota
	// StreakStarted is the first contribution ever
	StreakStarted
	// StreakExtended is a contribution the day after the last one
	StreakExtended
	// StreakReset is a contribution after a gap
	StreakReset
)

// Advance applies a contribution at time at in loc
// events dated before LastDay leave the streak alone because the day they
// belong to has already been accounted for or skipped
func (s Streak) Advance(at time.Time, loc *time.Location) (Streak, StreakChange) {
	day := ptime.Day(at, loc)
	if s.LastDay.IsZero() {
		return Streak{Current: 1, Longest: max(s.Longest, 1), LastDay: day}, StreakStarted
	}
	switch gap := ptime.DaysBetween(s.LastDay, day, loc); {
	case gap <= 0:
		return s, StreakUnchanged
	case gap == 1:
		s.Current++
		s.Longest = max(s.Longest, s.Current)
		s.LastDay = day
		return s, StreakExtended
	default:
		s.Current = 1
		s.Longest = max(s.Longest, 1)
		s.LastDay = day
		return s, StreakReset
	}
}

// Replay rebuilds a streak from contribution times in any order
func Replay(times []time.Time, loc *time.Location) Streak {
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		days = append(days, ptime.Day(t, loc))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	var s Streak
	for _, d := range days {
		s, _ = s.Advance(d, loc)
	}
	return s
}
