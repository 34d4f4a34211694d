package service

import (
	"context"
	"time"

	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	"scorekeeper/internal/services/sync/domain"
)

// Governor gates API calls on the remaining quota
type Governor struct {
	src         domain.Source
	buffer      time.Duration
	failBackoff time.Duration
	metrics     *metrics.Manager
	log         logger.Logger
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error

	// OnBudget observes every budget the governor acts on
	OnBudget func(domain.Budget)
}

// NewGovernor constructs a Governor
// buffer is added after the reset instant, failBackoff stands in for an unknown reset
func NewGovernor(src domain.Source, buffer, failBackoff time.Duration, m *metrics.Manager) *Governor {
	if src == nil {
		panic("sync.Governor requires a non nil Source")
	}
	if failBackoff <= 0 {
		failBackoff = 30 * time.Second
	}
	return &Governor{
		src:         src,
		buffer:      buffer,
		failBackoff: failBackoff,
		metrics:     m,
		log:         *logger.Named("governor"),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// CheckBudget queries the quota
// when the query fails the budget is reported exhausted until failBackoff elapses
func (g *Governor) CheckBudget(ctx context.Context) (domain.Budget, error) {
	b, err := g.src.RateLimit(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("rate limit check failed, assuming exhausted")
		b = domain.Budget{Remaining: 0, ResetAt: g.now().Add(g.failBackoff)}
	}
	g.metrics.RateLimit(b.Remaining)
	if g.OnBudget != nil {
		g.OnBudget(b)
	}
	return b, err
}

// WaitIfNeeded blocks while remaining <= threshold and the reset is ahead
// it returns early only when ctx ends
func (g *Governor) WaitIfNeeded(ctx context.Context, threshold int) error {
	b, _ := g.CheckBudget(ctx)
	if b.Remaining > threshold {
		return nil
	}
	d := b.ResetAt.Sub(g.now())
	if d <= 0 {
		return nil
	}
	d += g.buffer
	g.metrics.RateWait()
	g.log.Warn().
		Int("remaining", b.Remaining).
		Time("reset", b.ResetAt).
		Dur("sleep", d).
		Msg("rate limit low, waiting for reset")
	return g.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
