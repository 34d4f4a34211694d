package service

import (
	"context"
	"errors"
	"testing"

	"scorekeeper/internal/services/sync/domain"
)

func TestLocalLock_SingleHolder(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()

	rel, ok, err := l.TryAcquire(ctx, "run-a")
	if err != nil || !ok || l.Holder() != "run-a" {
		t.Fatalf("first acquire ok=%v err=%v holder=%q", ok, err, l.Holder())
	}
	if _, ok, _ := l.TryAcquire(ctx, "run-b"); ok {
		t.Fatal("second holder admitted")
	}
	rel()
	rel()
	if l.Holder() != "" {
		t.Fatalf("holder after release %q", l.Holder())
	}
	if _, ok, _ := l.TryAcquire(ctx, "run-b"); !ok {
		t.Fatal("lock not reusable after release")
	}
}

type stubLock struct {
	ok       bool
	err      error
	released int
}

func (s *stubLock) TryAcquire(context.Context, string) (func(), bool, error) {
	if s.err != nil || !s.ok {
		return nil, false, s.err
	}
	return func() { s.released++ }, true, nil
}

var _ domain.RunLock = (*stubLock)(nil)

func TestChainLock_RollsBackOnRefusal(t *testing.T) {
	first := &stubLock{ok: true}
	refused := ChainLock{first, &stubLock{ok: false}}
	if _, ok, err := refused.TryAcquire(context.Background(), "r"); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if first.released != 1 {
		t.Fatalf("first lock released %d times", first.released)
	}

	boom := errors.New("lease table unavailable")
	second := &stubLock{ok: true}
	failing := ChainLock{second, &stubLock{err: boom}}
	if _, _, err := failing.TryAcquire(context.Background(), "r"); !errors.Is(err, boom) {
		t.Fatalf("err %v", err)
	}
	if second.released != 1 {
		t.Fatalf("second lock released %d times", second.released)
	}
}

func TestChainLock_ReleasesAll(t *testing.T) {
	a, b := &stubLock{ok: true}, &stubLock{ok: true}
	rel, ok, err := ChainLock{a, b}.TryAcquire(context.Background(), "r")
	if !ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	rel()
	if a.released != 1 || b.released != 1 {
		t.Fatalf("released a=%d b=%d", a.released, b.released)
	}
}
