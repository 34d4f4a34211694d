package rules

// Awarded is the set of ids already granted to an actor
type Awarded map[string]struct{}

// NewAwarded builds an Awarded set from ids
func NewAwarded(ids ...string) Awarded {
	a := make(Awarded, len(ids))
	for _, id := range ids {
		a[id] = struct{}{}
	}
	return a
}

// Has reports whether id was granted
func (a Awarded) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// Evaluate returns thresholds crossed by s and absent from existing
// Reward points of new unlocks feed back into the points dimension until
// nothing new fires, so the caller can deposit every reward from one call
func (t *Table) Evaluate(s Snapshot, existing Awarded) []Threshold {
	seen := make(Awarded, len(existing))
	for id := range existing {
		seen[id] = struct{}{}
	}

	var out []Threshold
	collect := func(d Dimension) int {
		gained := 0
		v := s.Value(d)
		for _, th := range t.byDim[d] {
			if v < th.Value {
				break
			}
			if seen.Has(th.ID) {
				continue
			}
			seen[th.ID] = struct{}{}
			out = append(out, th)
			gained += th.Reward
		}
		return gained
	}

	for _, d := range Dimensions {
		s.TotalPoints += collect(d)
	}
	// rewards may have crossed a points tier that was checked before they landed
	for {
		gained := collect(DimensionPoints)
		if gained == 0 {
			break
		}
		s.TotalPoints += gained
	}
	return out
}
