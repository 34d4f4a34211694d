package service

import (
	"context"
	"time"

	"scorekeeper/internal/core/events"
	"scorekeeper/internal/core/normalize"
	"scorekeeper/internal/core/rules"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/services/scoring/domain"

	"github.com/google/uuid"
)

// countedReviewStates are the review states that earn credit
var countedReviewStates = map[string]bool{
	"APPROVED":  true,
	"COMMENTED": true,
}

// ReviewCounts reports whether a review in state earns credit
func ReviewCounts(state string) bool { return countedReviewStates[state] }

// unit is the per transaction scratch state, rebuilt on every retry
type unit struct {
	res domain.ApplyResult
	evs []events.Event
}

func (u *unit) emit(actor string, kind events.Kind, payload map[string]any) {
	u.evs = append(u.evs, events.New(actor, kind, payload))
}

// ApplyContribution records an authored item once and projects it onto the actor
func (s *Service) ApplyContribution(ctx context.Context, c domain.Contribution) (domain.ApplyResult, error) {
	login := normalize.Login(c.Actor)
	if c.Role == "" {
		c.Role = domain.RoleAuthor
	}
	switch {
	case login == "":
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: contribution %d has no actor", c.ItemID)
	case c.ItemID <= 0:
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: contribution item id %d", c.ItemID)
	case c.Role != domain.RoleAuthor:
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: unsupported role %q", c.Role)
	case c.MergedAt.IsZero():
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: contribution %d has no merge time", c.ItemID)
	}
	at := c.MergedAt.UTC()

	var u unit
	err := s.tx(ctx, func(l domain.Ledger) error {
		u = unit{}
		// replays end here without locking the actor row
		if seen, err := l.HasContribution(ctx, login, c.ItemID, c.Role); err != nil || seen {
			return err
		}
		a, err := l.EnsureActor(ctx, login, at)
		if err != nil {
			return err
		}
		fresh, err := l.RecordContribution(ctx, login, c.ItemID, c.Role, at)
		if err != nil || !fresh {
			return err
		}
		u.res.Applied = true
		a.PRCount++

		st, change := a.Streak().Advance(at, s.engine.Location)
		a.SetStreak(st)
		u.res.Streak = change
		if change != rules.StreakUnchanged {
			u.emit(login, events.KindStreak, map[string]any{
				"currentStreak": st.Current,
				"longestStreak": st.Longest,
				"itemId":        c.ItemID,
			})
		}

		pts, category := s.engine.Scorer.PR(normalize.Labels(c.Labels), a.CurrentStreak)
		item := c.ItemID
		if err := s.deposit(ctx, l, &a, &u, pts, rules.ReasonPRMerged, &item, at); err != nil {
			return err
		}
		u.res.Points = pts
		u.evs[len(u.evs)-1].Payload["category"] = category

		if err := s.settle(ctx, l, &a, &u, at); err != nil {
			return err
		}
		return l.SaveActor(ctx, a)
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}
	s.finish(ctx, "contribution", login, c.ItemID, &u)
	return u.res, nil
}

// ApplyReview records a submitted review once and projects it onto the reviewer
// reviews in states that earn no credit are ignored without touching storage
func (s *Service) ApplyReview(ctx context.Context, r domain.ReviewEvent) (domain.ApplyResult, error) {
	// uncounted states never reach the ledger, whoever wrote them
	if !ReviewCounts(r.State) {
		return domain.ApplyResult{}, nil
	}
	login := normalize.Login(r.Actor)
	switch {
	case login == "":
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: review %d has no actor", r.ReviewID)
	case r.ItemID <= 0 || r.ReviewID <= 0:
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: review %d/%d bad ids", r.ItemID, r.ReviewID)
	}
	at := r.SubmittedAt.UTC()
	if r.SubmittedAt.IsZero() {
		at = s.now().UTC()
	}

	var u unit
	err := s.tx(ctx, func(l domain.Ledger) error {
		u = unit{}
		if seen, err := l.HasReview(ctx, login, r.ItemID, r.ReviewID); err != nil || seen {
			return err
		}
		a, err := l.EnsureActor(ctx, login, at)
		if err != nil {
			return err
		}
		fresh, err := l.RecordReview(ctx, login, r.ItemID, r.ReviewID, at)
		if err != nil || !fresh {
			return err
		}
		u.res.Applied = true
		a.ReviewCount++

		pts := s.engine.Scorer.Review()
		item := r.ItemID
		if err := s.deposit(ctx, l, &a, &u, pts, rules.ReasonReviewCompleted, &item, at); err != nil {
			return err
		}
		u.res.Points = pts

		if err := s.settle(ctx, l, &a, &u, at); err != nil {
			return err
		}
		return l.SaveActor(ctx, a)
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}
	s.finish(ctx, "review", login, r.ReviewID, &u)
	return u.res, nil
}

// CompleteChallenge records a challenge completion once per actor and challenge
func (s *Service) CompleteChallenge(ctx context.Context, actor, challengeID string, reward int, at time.Time) (domain.ApplyResult, error) {
	login := normalize.Login(actor)
	if login == "" || challengeID == "" {
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: challenge needs actor and id")
	}
	if reward < 0 {
		return domain.ApplyResult{}, perr.InvalidArgf("scoring: negative challenge reward %d", reward)
	}
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	var u unit
	err := s.tx(ctx, func(l domain.Ledger) error {
		u = unit{}
		a, err := l.EnsureActor(ctx, login, at)
		if err != nil {
			return err
		}
		fresh, err := l.InsertChallenge(ctx, domain.ChallengeCompletion{
			Actor: login, ChallengeID: challengeID, Reward: reward, CompletedAt: at,
		})
		if err != nil || !fresh {
			return err
		}
		u.res.Applied = true
		if reward > 0 {
			if err := s.deposit(ctx, l, &a, &u, reward, rules.ReasonChallengeComplete, nil, at); err != nil {
				return err
			}
			u.res.Points = reward
		}
		if err := s.settle(ctx, l, &a, &u, at); err != nil {
			return err
		}
		return l.SaveActor(ctx, a)
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}
	s.finish(ctx, "challenge", login, 0, &u)
	return u.res, nil
}

// deposit appends a points entry and moves the running total with it
func (s *Service) deposit(ctx context.Context, l domain.Ledger, a *domain.Actor, u *unit, pts int, reason string, item *int64, at time.Time) error {
	e := domain.PointsEntry{
		ID:        uuid.New(),
		Actor:     a.Login,
		Points:    pts,
		Reason:    reason,
		ItemID:    item,
		Timestamp: at,
	}
	if err := l.AppendPoints(ctx, e); err != nil {
		return err
	}
	a.TotalPoints += pts
	u.emit(a.Login, events.KindPoints, map[string]any{
		"delta":  pts,
		"total":  a.TotalPoints,
		"reason": reason,
	})
	return nil
}

// settle grants unlocks and bills now due for the actor
// bots keep their counts but never unlock or earn bills
func (s *Service) settle(ctx context.Context, l domain.Ledger, a *domain.Actor, u *unit, at time.Time) error {
	if !s.engine.Rewarded(a.Login) {
		return nil
	}
	chs, err := l.Challenges(ctx, a.Login)
	if err != nil {
		return err
	}
	have, err := l.Unlocks(ctx, a.Login)
	if err != nil {
		return err
	}
	awarded := rules.NewAwarded()
	for _, x := range have {
		awarded[x.ID] = struct{}{}
	}

	for _, th := range s.engine.Table.Evaluate(a.Snapshot(len(chs)), awarded) {
		un := domain.Unlock{
			Actor:     a.Login,
			ID:        th.ID,
			Name:      th.Name,
			Kind:      th.Kind,
			Dimension: th.Dimension,
			Reward:    th.Reward,
			EarnedAt:  at,
		}
		fresh, err := l.InsertUnlock(ctx, un)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		u.res.Unlocks = append(u.res.Unlocks, un)
		kind := events.KindAchievement
		if th.Kind == rules.KindBadge {
			kind = events.KindBadgeUnlocked
		}
		u.emit(a.Login, kind, map[string]any{
			"id":        th.ID,
			"name":      th.Name,
			"dimension": th.Dimension.String(),
			"reward":    th.Reward,
		})
		if th.Reward > 0 {
			if err := s.deposit(ctx, l, a, u, th.Reward, rules.ReasonAchievement, nil, at); err != nil {
				return err
			}
		}
	}

	grants, err := l.Bills(ctx, a.Login)
	if err != nil {
		return err
	}
	granted := rules.NewAwarded()
	for _, g := range grants {
		granted[g.ID] = struct{}{}
	}
	for _, g := range rules.EvaluateBills(a.Snapshot(len(chs)), granted, s.engine.Milestones) {
		b := domain.BillGrant{Actor: a.Login, ID: g.ID, Rule: g.Rule, Units: g.Units, GrantedAt: at}
		fresh, err := l.InsertBill(ctx, b)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		a.TotalBillsAwarded += g.Units
		u.res.Bills = append(u.res.Bills, b)
		u.emit(a.Login, events.KindBill, map[string]any{
			"id":    g.ID,
			"rule":  g.Rule,
			"units": g.Units,
			"total": a.TotalBillsAwarded,
		})
	}
	return nil
}

// finish records metrics and publishes events once the transaction committed
func (s *Service) finish(ctx context.Context, kind, login string, ref int64, u *unit) {
	if !u.res.Applied {
		s.metrics.Duplicate(kind)
		s.log.Debug().Str("kind", kind).Str("actor", login).Int64("ref", ref).Msg("already processed")
		return
	}
	for _, un := range u.res.Unlocks {
		s.metrics.Unlocked(un.Dimension.String())
		s.log.Info().Str("actor", login).Str("unlock", un.ID).Int("reward", un.Reward).Msg("unlocked")
	}
	for _, b := range u.res.Bills {
		s.metrics.BillGranted(b.Rule, b.Units)
		s.log.Info().Str("actor", login).Str("bill", b.ID).Int("units", b.Units).Msg("bill granted")
	}
	s.events.Emit(ctx, u.evs...)
}
