package service

import (
	"context"
	"sync"

	"scorekeeper/internal/services/sync/domain"
)

// LocalLock is an in process run lock
type LocalLock struct {
	mu     sync.Mutex
	holder string
}

var _ domain.RunLock = (*LocalLock)(nil)

// NewLocalLock returns an unlocked LocalLock
func NewLocalLock() *LocalLock { return &LocalLock{} }

// TryAcquire implements domain.RunLock
func (l *LocalLock) TryAcquire(_ context.Context, runID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != "" {
		return nil, false, nil
	}
	l.holder = runID
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.holder = ""
			l.mu.Unlock()
		})
	}, true, nil
}

// Holder returns the current run id or ""
func (l *LocalLock) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}

// ChainLock acquires every lock in order and releases in reverse
type ChainLock []domain.RunLock

// TryAcquire implements domain.RunLock
func (c ChainLock) TryAcquire(ctx context.Context, runID string) (func(), bool, error) {
	var held []func()
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, l := range c {
		rel, ok, err := l.TryAcquire(ctx, runID)
		if err != nil || !ok {
			releaseAll()
			return nil, false, err
		}
		held = append(held, rel)
	}
	return releaseAll, true, nil
}
