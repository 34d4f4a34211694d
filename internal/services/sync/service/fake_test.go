package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"scorekeeper/internal/core/rules"
	perr "scorekeeper/internal/platform/errors"
	scorerepo "scorekeeper/internal/services/scoring/repo"
	scoresvc "scorekeeper/internal/services/scoring/service"
	"scorekeeper/internal/services/sync/domain"
)

var day0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := day0.AddDate(0, 0, days)
	return &t
}

// fakeSource serves a fixed listing in memory
type fakeSource struct {
	mu        sync.Mutex
	items     []domain.Item // listing order, most recently updated first
	reviews   map[int][]domain.Review
	reviewErr map[int]error
	listErr   map[int]error
	budget    domain.Budget
	budgetErr error

	listCalls   int
	budgetCalls int

	// when hold is set, Reviews reports the item on entered and waits for hold to close
	hold    chan struct{}
	entered chan int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		reviews:   map[int][]domain.Review{},
		reviewErr: map[int]error{},
		listErr:   map[int]error{},
		budget:    domain.Budget{Remaining: 5000, ResetAt: day0.Add(time.Hour)},
	}
}

func (f *fakeSource) ListClosed(_ context.Context, page, perPage int) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := f.listErr[page]; err != nil {
		return nil, err
	}
	lo := (page - 1) * perPage
	if lo >= len(f.items) {
		return nil, nil
	}
	hi := min(lo+perPage, len(f.items))
	return append([]domain.Item(nil), f.items[lo:hi]...), nil
}

func (f *fakeSource) Item(_ context.Context, number int) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.Number == number {
			return it, nil
		}
	}
	return domain.Item{}, perr.NotFoundf("item %d", number)
}

func (f *fakeSource) Reviews(ctx context.Context, number int) ([]domain.Review, error) {
	f.mu.Lock()
	hold, entered := f.hold, f.entered
	f.mu.Unlock()
	if hold != nil {
		entered <- number
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reviewErr[number]; err != nil {
		return nil, err
	}
	return f.reviews[number], nil
}

func (f *fakeSource) RateLimit(context.Context) (domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgetCalls++
	return f.budget, f.budgetErr
}

func (f *fakeSource) calls() (list, budget int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.budgetCalls
}

// aliceListing is three authored merges on D, D+1 and D+3 plus an unmerged item
func aliceListing() *fakeSource {
	f := newFakeSource()
	f.items = []domain.Item{
		{ID: 1003, Number: 3, Author: "alice", MergedAt: at(3), UpdatedAt: *at(3)},
		{ID: 1009, Number: 9, Author: "dave", UpdatedAt: *at(2)},
		{ID: 1002, Number: 2, Author: "alice", Labels: []string{"Bug"}, MergedAt: at(1), UpdatedAt: *at(1)},
		{ID: 1001, Number: 1, Author: "alice", MergedAt: at(0), UpdatedAt: *at(0)},
	}
	f.reviews[1] = []domain.Review{
		{ID: 101, Author: "bob", State: "APPROVED", SubmittedAt: at(0)},
		{ID: 102, Author: "Alice", State: "COMMENTED", SubmittedAt: at(0)},
		{ID: 103, Author: "carol", State: "CHANGES_REQUESTED", SubmittedAt: at(0)},
	}
	f.reviews[2] = []domain.Review{
		{ID: 201, Author: "bob", State: "COMMENTED", SubmittedAt: at(1)},
		{ID: 202, Author: "carol", State: "APPROVED", SubmittedAt: at(1)},
	}
	return f
}

func newScoring() *scoresvc.Service {
	return scoresvc.New(scorerepo.NewMemory(), rules.NewEngine(), scoresvc.Config{})
}

func newOrch(t *testing.T, src domain.Source, sc domain.Scoring, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return day0.AddDate(0, 0, 10) })}, opts...)
	o := New(src, sc, NewLocalLock(), cfg, opts...)
	o.gov.sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(o.Close)
	return o
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
