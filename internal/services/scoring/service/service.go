// Package service implements the event ledger, the aggregate projector and
// the scoring maintenance operations
package service

import (
	"context"
	"math/rand"
	"time"

	"scorekeeper/internal/core/events"
	"scorekeeper/internal/core/rules"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	"scorekeeper/internal/services/scoring/domain"
)

// Config holds tuning for the scoring service
type Config struct {
	// TxRetries is the number of attempts for a retryable transaction; <=0 -> 1
	TxRetries int
	// RetryBase is the base backoff between attempts; <=0 -> 50ms
	RetryBase time.Duration
}

// Service implements domain.ServicePort
type Service struct {
	store   domain.Store
	engine  *rules.Engine
	events  events.Emitter
	metrics *metrics.Manager
	cfg     Config
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

var _ domain.ServicePort = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithEvents sets the emitter domain events go to
func WithEvents(e events.Emitter) Option { return func(s *Service) { s.events = e } }

// WithMetrics sets the metrics manager
func WithMetrics(m *metrics.Manager) Option { return func(s *Service) { s.metrics = m } }

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New constructs the scoring service
func New(store domain.Store, engine *rules.Engine, cfg Config, opts ...Option) *Service {
	if store == nil {
		panic("scoring.Service requires a non nil Store")
	}
	if engine == nil {
		engine = rules.NewEngine()
	}
	if cfg.TxRetries <= 0 {
		cfg.TxRetries = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 50 * time.Millisecond
	}
	s := &Service{
		store:  store,
		engine: engine,
		events: events.Discard{},
		cfg:    cfg,
		log:    *logger.Named("scoring"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Engine exposes the rule tables in use
func (s *Service) Engine() *rules.Engine { return s.engine }

// tx runs fn in a transaction and retries on serialization and deadlock errors
// fn must be safe to re-run, so callers reset any captured state at its top
func (s *Service) tx(ctx context.Context, fn func(l domain.Ledger) error) error {
	var last error
	for i := 0; i < s.cfg.TxRetries; i++ {
		start := time.Now()
		err := s.store.Tx(ctx, fn)
		s.metrics.ObserveEventTx(time.Since(start).Seconds())
		if err == nil {
			return nil
		}
		last = err
		if !perr.Retryable(err) || i == s.cfg.TxRetries-1 {
			break
		}
		// exponential backoff with jitter, capped at 2s
		d := min(s.cfg.RetryBase<<i, 2*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		s.log.Warn().Err(err).Int("attempt", i+1).Dur("retry_in", j).Msg("scoring tx retry")
		if se := s.sleep(ctx, j); se != nil {
			return se
		}
	}
	return last
}

// Watermark implements domain.WatermarkPort
func (s *Service) Watermark(ctx context.Context) (time.Time, bool, error) {
	var (
		t  time.Time
		ok bool
	)
	err := s.tx(ctx, func(l domain.Ledger) error {
		var err error
		t, ok, err = l.Watermark(ctx)
		return err
	})
	return t, ok, err
}

// SetWatermark implements domain.WatermarkPort
func (s *Service) SetWatermark(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return perr.InvalidArgf("scoring: zero watermark")
	}
	return s.tx(ctx, func(l domain.Ledger) error { return l.SetWatermark(ctx, t) })
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
