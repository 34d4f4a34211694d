package github

import "time"

// User is a partial GitHub user document
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Label is a partial issue label
type Label struct {
	Name string `json:"name"`
}

// PullRequest is the subset of a pull document the sync engine reads
type PullRequest struct {
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	User      User       `json:"user"`
	Labels    []Label    `json:"labels"`
	MergedAt  *time.Time `json:"merged_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	HTMLURL   string     `json:"html_url"`
}

// LabelNames flattens the label set
func (p PullRequest) LabelNames() []string {
	out := make([]string, 0, len(p.Labels))
	for _, l := range p.Labels {
		out = append(out, l.Name)
	}
	return out
}

// Merged reports whether the pull carries a merge timestamp
func (p PullRequest) Merged() bool { return p.MergedAt != nil && !p.MergedAt.IsZero() }

// Review is one submitted pull request review
type Review struct {
	ID          int64      `json:"id"`
	User        User       `json:"user"`
	State       string     `json:"state"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// Review states GitHub reports
const (
	ReviewApproved         = "APPROVED"
	ReviewCommented        = "COMMENTED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewDismissed        = "DISMISSED"
	ReviewPending          = "PENDING"
)

// RateLimit is the core quota bucket
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// rateLimitDoc is the /rate_limit body
type rateLimitDoc struct {
	Resources struct {
		Core struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"core"`
	} `json:"resources"`
}
