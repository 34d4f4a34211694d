package service

import (
	"sync"
	"time"

	"scorekeeper/internal/services/sync/domain"
)

// reporter guards the run state shared between the run goroutine and pollers
type reporter struct {
	mu  sync.Mutex
	st  domain.RunState
	now func() time.Time
}

func (r *reporter) update(fn func(*domain.RunState)) {
	r.mu.Lock()
	fn(&r.st)
	r.mu.Unlock()
}

// snapshot returns a copy with percent and ETA derived
func (r *reporter) snapshot() domain.RunState {
	r.mu.Lock()
	s := r.st
	r.mu.Unlock()

	if s.Status == "" {
		s.Status = domain.StatusIdle
	}
	if s.TotalItems > 0 {
		s.Percent = min(100, s.ProcessedItems*100/s.TotalItems)
	}
	if s.IsRunning && s.Status == domain.StatusProcessing && s.StartedAt != nil &&
		s.ProcessedItems > 0 && s.TotalItems >= s.ProcessedItems {
		elapsed := r.now().Sub(*s.StartedAt)
		per := elapsed / time.Duration(s.ProcessedItems)
		eta := int64((per * time.Duration(s.TotalItems-s.ProcessedItems)).Round(time.Second).Seconds())
		s.ETASeconds = &eta
	}
	return s
}
