// Package domain holds the sync run model and ports
package domain

import "time"

// Status is a run state machine position
type Status string

// Run states, idle -> counting -> processing -> completed|stopped|error
const (
	StatusIdle       Status = "idle"
	StatusCounting   Status = "counting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
)

// Terminal reports whether the run has finished
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusError
}

// Kind names the entry point that started a run
type Kind string

// Run kinds
const (
	KindBackfill    Kind = "backfill"
	KindIncremental Kind = "incremental"
	KindRecount     Kind = "recount"
)

// Window is an inclusive merge time range
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End]
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Item is one closed pull request from the listing
type Item struct {
	ID        int64
	Number    int
	Author    string
	Title     string
	Labels    []string
	MergedAt  *time.Time
	UpdatedAt time.Time
}

// Merged reports whether the item carries a merge time
func (i Item) Merged() bool { return i.MergedAt != nil && !i.MergedAt.IsZero() }

// Review is one submitted review on an item
type Review struct {
	ID          int64
	Author      string
	State       string
	SubmittedAt *time.Time
}

// Budget is the remaining API quota
type Budget struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// RunState is the process lifetime view of the current or last run
type RunState struct {
	RunID            string     `json:"runId,omitempty"`
	Kind             Kind       `json:"kind,omitempty"`
	Status           Status     `json:"status"`
	IsRunning        bool       `json:"isRunning"`
	ShouldStop       bool       `json:"shouldStop"`
	Window           *Window    `json:"window,omitempty"`
	TotalItems       int        `json:"totalItems"`
	ProcessedItems   int        `json:"processedItems"`
	NewContributions int        `json:"newContributions"`
	ProcessedReviews int        `json:"processedReviews"`
	FailedItems      int        `json:"failedItems"`
	CurrentItem      int        `json:"currentItem,omitempty"`
	RateRemaining    int        `json:"rateLimitRemaining"`
	RateResetAt      *time.Time `json:"rateLimitResetAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	Message          string     `json:"message,omitempty"`
	Error            string     `json:"error,omitempty"`
	Percent          int        `json:"percent"`
	ETASeconds       *int64     `json:"etaSeconds,omitempty"`
}

// Result is the acknowledgement returned by control operations
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RunID   string `json:"runId,omitempty"`
}
