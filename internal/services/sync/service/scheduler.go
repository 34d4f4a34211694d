package service

import (
	"context"
	"time"

	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/services/sync/domain"
)

// Scheduler triggers incremental runs on a fixed interval
// it goes through the same run lock as every other trigger, a busy tick is skipped
type Scheduler struct {
	runner   domain.RunnerPort
	interval time.Duration
	log      logger.Logger
}

// NewScheduler constructs a Scheduler; interval <= 0 disables it
func NewScheduler(r domain.RunnerPort, interval time.Duration) *Scheduler {
	if r == nil {
		panic("sync.Scheduler requires a non nil runner")
	}
	return &Scheduler{runner: r, interval: interval, log: *logger.Named("scheduler")}
}

// Run blocks until ctx ends
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info().Msg("scheduled sync disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.Info().Dur("interval", s.interval).Msg("scheduled sync enabled")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts one incremental run unless one is already active
func (s *Scheduler) Tick(ctx context.Context) domain.Result {
	res, err := s.runner.StartIncremental(ctx)
	switch {
	case err != nil:
		s.log.Error().Err(err).Msg("scheduled sync failed to start")
	case !res.Success:
		s.log.Info().Str("reason", res.Message).Msg("scheduled sync skipped")
	default:
		s.log.Info().Str("run_id", res.RunID).Msg("scheduled sync started")
	}
	return res
}
