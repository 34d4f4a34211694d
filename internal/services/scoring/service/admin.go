package service

import (
	"context"
	"time"

	"scorekeeper/internal/core/normalize"
	"scorekeeper/internal/core/rules"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/services/scoring/domain"
)

// Reconcile compares aggregates to ledger sizes and returns only drifted actors
// empty login checks every actor; nothing is corrected here
func (s *Service) Reconcile(ctx context.Context, login string) ([]domain.DriftReport, error) {
	var out []domain.DriftReport
	err := s.tx(ctx, func(l domain.Ledger) error {
		out = nil
		logins := []string{normalize.Login(login)}
		if login == "" {
			var err error
			if logins, err = l.ListActors(ctx); err != nil {
				return err
			}
		}
		for _, who := range logins {
			a, err := l.GetActor(ctx, who)
			if err != nil {
				return err
			}
			c, err := l.Counts(ctx, who)
			if err != nil {
				return err
			}
			r := domain.DriftReport{
				Actor:         who,
				PRCount:       a.PRCount,
				Contributions: c.Contributions,
				ReviewCount:   a.ReviewCount,
				Reviews:       c.Reviews,
				TotalPoints:   a.TotalPoints,
				PointsSum:     c.PointsSum,
			}
			if r.Drifted() {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		s.log.Error().
			Str("actor", r.Actor).
			Int("pr_count", r.PRCount).Int("contributions", r.Contributions).
			Int("review_count", r.ReviewCount).Int("reviews", r.Reviews).
			Int("total_points", r.TotalPoints).Int("points_sum", r.PointsSum).
			Msg("aggregate drift detected")
	}
	s.metrics.Drift(len(out))
	return out, nil
}

// Rebuild recomputes an actor's aggregates from the ledger, the ledger wins
func (s *Service) Rebuild(ctx context.Context, login string) (domain.Actor, error) {
	login = normalize.Login(login)
	if login == "" {
		return domain.Actor{}, perr.InvalidArgf("scoring: rebuild needs a login")
	}
	var before, after domain.Actor
	err := s.tx(ctx, func(l domain.Ledger) error {
		a, err := l.GetActor(ctx, login)
		if err != nil {
			return err
		}
		before = a
		c, err := l.Counts(ctx, login)
		if err != nil {
			return err
		}
		times, err := l.ContributionTimes(ctx, login)
		if err != nil {
			return err
		}
		a.PRCount = c.Contributions
		a.ReviewCount = c.Reviews
		a.TotalPoints = c.PointsSum
		a.TotalBillsAwarded = c.BillUnits
		a.SetStreak(rules.Replay(times, s.engine.Location))
		after = a
		return l.SaveActor(ctx, a)
	})
	if err != nil {
		return domain.Actor{}, err
	}
	s.log.Warn().
		Str("actor", login).
		Int("pr_count_before", before.PRCount).Int("pr_count_after", after.PRCount).
		Int("review_count_before", before.ReviewCount).Int("review_count_after", after.ReviewCount).
		Int("points_before", before.TotalPoints).Int("points_after", after.TotalPoints).
		Msg("aggregates rebuilt from ledger")
	return after, nil
}

// Reset deletes one actor with every ledger and derived row in one transaction
func (s *Service) Reset(ctx context.Context, login string) error {
	login = normalize.Login(login)
	if login == "" {
		return perr.InvalidArgf("scoring: reset needs a login")
	}
	err := s.tx(ctx, func(l domain.Ledger) error {
		if _, err := l.GetActor(ctx, login); err != nil {
			return err
		}
		return l.DeleteActor(ctx, login)
	})
	if err == nil {
		s.log.Warn().Str("actor", login).Msg("actor reset")
	}
	return err
}

// ResetAll clears every actor in one transaction, the watermark survives
func (s *Service) ResetAll(ctx context.Context) error {
	err := s.tx(ctx, func(l domain.Ledger) error { return l.DeleteAll(ctx) })
	if err == nil {
		s.log.Warn().Msg("all scoring state reset")
	}
	return err
}

// Actor implements domain.QueryPort
func (s *Service) Actor(ctx context.Context, login string) (domain.ActorView, error) {
	login = normalize.Login(login)
	var v domain.ActorView
	err := s.tx(ctx, func(l domain.Ledger) error {
		a, err := l.GetActor(ctx, login)
		if err != nil {
			return err
		}
		v = domain.ActorView{Actor: a}
		if v.Unlocks, err = l.Unlocks(ctx, login); err != nil {
			return err
		}
		if v.Bills, err = l.Bills(ctx, login); err != nil {
			return err
		}
		v.Challenges, err = l.Challenges(ctx, login)
		return err
	})
	return v, err
}

// Points implements domain.QueryPort, the range is [from, to)
// a zero to means now
func (s *Service) Points(ctx context.Context, login string, from, to time.Time) ([]domain.PointsEntry, error) {
	login = normalize.Login(login)
	if to.IsZero() {
		to = s.now()
	}
	if !from.Before(to) {
		return nil, perr.InvalidArgf("scoring: empty points range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	var out []domain.PointsEntry
	err := s.tx(ctx, func(l domain.Ledger) error {
		if _, err := l.GetActor(ctx, login); err != nil {
			return err
		}
		var err error
		out, err = l.PointsBetween(ctx, login, from, to)
		return err
	})
	return out, err
}
