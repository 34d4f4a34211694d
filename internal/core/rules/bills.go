package rules

import (
	"fmt"
	"strings"
)

// VolumeStep is the combined PR and review count that earns one volume bill
const VolumeStep = 100

// volumePrefix marks grant ids issued by the per hundred rule
const volumePrefix = "volume-"

// Grant is one bill award
type Grant struct {
	ID    string
	Rule  string
	Units int
}

// Milestone is a flat one time bill grant
type Milestone struct {
	ID        string
	Units     int
	Dimension Dimension
	Value     int
	// Either also fires on the reviews dimension reaching Value
	Either bool
}

// DefaultMilestones are the built in flat grants
func DefaultMilestones() []Milestone {
	return []Milestone{
		{ID: "first-10", Units: 1, Dimension: DimensionPRs, Value: 10, Either: true},
		{ID: "vonette-500-prs", Units: 5, Dimension: DimensionPRs, Value: 500},
		{ID: "vonette-500-reviews", Units: 5, Dimension: DimensionReviews, Value: 500},
	}
}

// VolumeGrantID returns the id of the k-th volume bill, starting at 1
func VolumeGrantID(k int) string { return fmt.Sprintf("%s%d", volumePrefix, k) }

// IsVolumeGrant reports whether id came from the per hundred rule
func IsVolumeGrant(id string) bool { return strings.HasPrefix(id, volumePrefix) }

// EvaluateBills returns the bills newly due for s given the grants already made
// The volume rule and the milestone rule are independent and their grants add
// up: floor(total/100) minus existing volume grants, plus each milestone whose
// id is not in granted
func EvaluateBills(s Snapshot, granted Awarded, milestones []Milestone) []Grant {
	var out []Grant

	have := 0
	for id := range granted {
		if IsVolumeGrant(id) {
			have++
		}
	}
	due := (s.PRCount + s.ReviewCount) / VolumeStep
	for k := have + 1; k <= due; k++ {
		id := VolumeGrantID(k)
		if granted.Has(id) {
			continue
		}
		out = append(out, Grant{ID: id, Rule: "volume", Units: 1})
	}

	for _, m := range milestones {
		if granted.Has(m.ID) {
			continue
		}
		hit := s.Value(m.Dimension) >= m.Value
		if !hit && m.Either {
			hit = s.ReviewCount >= m.Value
		}
		if hit {
			out = append(out, Grant{ID: m.ID, Rule: m.ID, Units: m.Units})
		}
	}
	return out
}
