// Package repo provides the scoring storage implementations
package repo

import (
	"context"
	_ "embed"
	"time"

	"scorekeeper/internal/core/rules"
	"scorekeeper/internal/modkit/repokit"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/store"
	"scorekeeper/internal/services/scoring/domain"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL the PG binder expects
func Schema() string { return schemaSQL }

// Migrate applies the schema, every statement is idempotent
func Migrate(ctx context.Context, q repokit.Queryer) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return perr.FromPostgres(err, "scoring: migrate")
	}
	return nil
}

type pg struct{ q repokit.Queryer }

var _ domain.Ledger = (*pg)(nil)

// NewPG returns a binder that opens the Postgres ledger on a transaction
func NewPG() repokit.Binder[domain.Ledger] {
	return repokit.BindFunc[domain.Ledger](func(q repokit.Queryer) domain.Ledger { return &pg{q: q} })
}

const actorCols = `login, pr_count, review_count, total_points, current_streak, longest_streak,
	last_contribution_day, total_bills_awarded, created_at, updated_at`

func scanActor(r store.Row) (domain.Actor, error) {
	var a domain.Actor
	var total int64
	err := r.Scan(&a.Login, &a.PRCount, &a.ReviewCount, &total, &a.CurrentStreak, &a.LongestStreak,
		&a.LastContribution, &a.TotalBillsAwarded, &a.CreatedAt, &a.UpdatedAt)
	a.TotalPoints = int(total)
	return a, err
}

// EnsureActor implements domain.Ledger
func (s *pg) EnsureActor(ctx context.Context, login string, at time.Time) (domain.Actor, error) {
	if _, err := s.q.Exec(ctx, `
		INSERT INTO actors (login, created_at, updated_at) VALUES ($1, $2, $2)
		ON CONFLICT (login) DO NOTHING`, login, at.UTC()); err != nil {
		return domain.Actor{}, perr.FromPostgres(err, "scoring: ensure actor")
	}
	a, err := store.One(ctx, s.q, scanActor, `SELECT `+actorCols+` FROM actors WHERE login = $1 FOR UPDATE`, login)
	if err != nil {
		return domain.Actor{}, perr.FromPostgres(err, "scoring: lock actor")
	}
	return a, nil
}

// GetActor implements domain.Ledger
func (s *pg) GetActor(ctx context.Context, login string) (domain.Actor, error) {
	a, err := store.One(ctx, s.q, scanActor, `SELECT `+actorCols+` FROM actors WHERE login = $1`, login)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Actor{}, domain.ErrActorNotFound
	}
	if err != nil {
		return domain.Actor{}, perr.FromPostgres(err, "scoring: get actor")
	}
	return a, nil
}

// SaveActor implements domain.Ledger
func (s *pg) SaveActor(ctx context.Context, a domain.Actor) error {
	_, err := s.q.Exec(ctx, `
		UPDATE actors SET
			pr_count = $2, review_count = $3, total_points = $4,
			current_streak = $5, longest_streak = $6, last_contribution_day = $7,
			total_bills_awarded = $8, updated_at = now()
		WHERE login = $1`,
		a.Login, a.PRCount, a.ReviewCount, int64(a.TotalPoints),
		a.CurrentStreak, a.LongestStreak, a.LastContribution, a.TotalBillsAwarded)
	if err != nil {
		return perr.FromPostgres(err, "scoring: save actor")
	}
	return nil
}

// ListActors implements domain.Ledger
func (s *pg) ListActors(ctx context.Context) ([]string, error) {
	out, err := store.Many(ctx, s.q, func(r store.Row) (string, error) {
		var l string
		return l, r.Scan(&l)
	}, `SELECT login FROM actors ORDER BY login`)
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: list actors")
	}
	return out, nil
}

// insertReturning runs an ON CONFLICT DO NOTHING insert and reports whether a row landed
func (s *pg) insertReturning(ctx context.Context, op, sql string, args ...any) (bool, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return false, perr.FromPostgres(err, op)
	}
	defer rows.Close()
	inserted := rows.Next()
	if err := rows.Err(); err != nil {
		return false, perr.FromPostgres(err, op)
	}
	return inserted, nil
}

// RecordContribution implements domain.Ledger
func (s *pg) RecordContribution(ctx context.Context, login string, itemID int64, role domain.Role, at time.Time) (bool, error) {
	return s.insertReturning(ctx, "scoring: record contribution", `
		INSERT INTO processed_contributions (login, item_id, role, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (login, item_id, role) DO NOTHING
		RETURNING true`, login, itemID, string(role), at.UTC())
}

// RecordReview implements domain.Ledger
func (s *pg) RecordReview(ctx context.Context, login string, itemID, reviewID int64, at time.Time) (bool, error) {
	return s.insertReturning(ctx, "scoring: record review", `
		INSERT INTO processed_reviews (login, item_id, review_id, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (login, item_id, review_id) DO NOTHING
		RETURNING true`, login, itemID, reviewID, at.UTC())
}

// HasContribution implements domain.Ledger
func (s *pg) HasContribution(ctx context.Context, login string, itemID int64, role domain.Role) (bool, error) {
	ok, err := store.Scalar[bool](ctx, s.q, `
		SELECT EXISTS (SELECT 1 FROM processed_contributions WHERE login = $1 AND item_id = $2 AND role = $3)`,
		login, itemID, string(role))
	if err != nil {
		return false, perr.FromPostgres(err, "scoring: has contribution")
	}
	return ok, nil
}

// HasReview implements domain.Ledger
func (s *pg) HasReview(ctx context.Context, login string, itemID, reviewID int64) (bool, error) {
	ok, err := store.Scalar[bool](ctx, s.q, `
		SELECT EXISTS (SELECT 1 FROM processed_reviews WHERE login = $1 AND item_id = $2 AND review_id = $3)`,
		login, itemID, reviewID)
	if err != nil {
		return false, perr.FromPostgres(err, "scoring: has review")
	}
	return ok, nil
}

// ContributionTimes implements domain.Ledger
func (s *pg) ContributionTimes(ctx context.Context, login string) ([]time.Time, error) {
	out, err := store.Many(ctx, s.q, func(r store.Row) (time.Time, error) {
		var t time.Time
		return t, r.Scan(&t)
	}, `SELECT occurred_at FROM processed_contributions WHERE login = $1 AND role = $2 ORDER BY occurred_at`,
		login, string(domain.RoleAuthor))
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: contribution times")
	}
	return out, nil
}

// AppendPoints implements domain.Ledger
func (s *pg) AppendPoints(ctx context.Context, e domain.PointsEntry) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO points_entries (id, login, points, reason, item_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Actor, e.Points, e.Reason, e.ItemID, e.Timestamp.UTC())
	if err != nil {
		return perr.FromPostgres(err, "scoring: append points")
	}
	return nil
}

// PointsBetween implements domain.Ledger
func (s *pg) PointsBetween(ctx context.Context, login string, from, to time.Time) ([]domain.PointsEntry, error) {
	out, err := store.Many(ctx, s.q, func(r store.Row) (domain.PointsEntry, error) {
		var e domain.PointsEntry
		return e, r.Scan(&e.ID, &e.Actor, &e.Points, &e.Reason, &e.ItemID, &e.Timestamp)
	}, `
		SELECT id, login, points, reason, item_id, occurred_at
		FROM points_entries
		WHERE login = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, created_at, id`, login, from.UTC(), to.UTC())
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: points between")
	}
	return out, nil
}

// Unlocks implements domain.Ledger
func (s *pg) Unlocks(ctx context.Context, login string) ([]domain.Unlock, error) {
	out, err := store.Many(ctx, s.q, scanUnlock, `
		SELECT login, unlock_id, name, kind, dimension, reward, earned_at
		FROM unlocks WHERE login = $1 ORDER BY earned_at, unlock_id`, login)
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: unlocks")
	}
	return out, nil
}

// scanUnlock rejects rows whose kind or dimension this build does not know
func scanUnlock(r store.Row) (domain.Unlock, error) {
	var u domain.Unlock
	var kind, dim string
	if err := r.Scan(&u.Actor, &u.ID, &u.Name, &kind, &dim, &u.Reward, &u.EarnedAt); err != nil {
		return u, err
	}
	var err error
	if u.Kind, err = parseKind(kind); err != nil {
		return u, perr.Wrapf(err, perr.ErrorCodeDB, "scoring: unlock %s", u.ID)
	}
	if u.Dimension, err = rules.ParseDimension(dim); err != nil {
		return u, perr.Wrapf(err, perr.ErrorCodeDB, "scoring: unlock %s", u.ID)
	}
	return u, nil
}

func parseKind(s string) (rules.Kind, error) {
	switch s {
	case rules.KindAchievement.String():
		return rules.KindAchievement, nil
	case rules.KindBadge.String():
		return rules.KindBadge, nil
	}
	return 0, perr.Newf(perr.ErrorCodeDB, "unknown unlock kind %q", s)
}

// InsertUnlock implements domain.Ledger
func (s *pg) InsertUnlock(ctx context.Context, u domain.Unlock) (bool, error) {
	return s.insertReturning(ctx, "scoring: insert unlock", `
		INSERT INTO unlocks (login, unlock_id, name, kind, dimension, reward, earned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (login, unlock_id) DO NOTHING
		RETURNING true`,
		u.Actor, u.ID, u.Name, u.Kind.String(), u.Dimension.String(), u.Reward, u.EarnedAt.UTC())
}

// Bills implements domain.Ledger
func (s *pg) Bills(ctx context.Context, login string) ([]domain.BillGrant, error) {
	out, err := store.Many(ctx, s.q, func(r store.Row) (domain.BillGrant, error) {
		var b domain.BillGrant
		return b, r.Scan(&b.Actor, &b.ID, &b.Rule, &b.Units, &b.GrantedAt)
	}, `
		SELECT login, grant_id, rule, units, granted_at
		FROM bill_grants WHERE login = $1 ORDER BY granted_at, grant_id`, login)
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: bills")
	}
	return out, nil
}

// InsertBill implements domain.Ledger
func (s *pg) InsertBill(ctx context.Context, b domain.BillGrant) (bool, error) {
	return s.insertReturning(ctx, "scoring: insert bill", `
		INSERT INTO bill_grants (login, grant_id, rule, units, granted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (login, grant_id) DO NOTHING
		RETURNING true`, b.Actor, b.ID, b.Rule, b.Units, b.GrantedAt.UTC())
}

// Challenges implements domain.Ledger
func (s *pg) Challenges(ctx context.Context, login string) ([]domain.ChallengeCompletion, error) {
	out, err := store.Many(ctx, s.q, func(r store.Row) (domain.ChallengeCompletion, error) {
		var c domain.ChallengeCompletion
		return c, r.Scan(&c.Actor, &c.ChallengeID, &c.Reward, &c.CompletedAt)
	}, `
		SELECT login, challenge_id, reward, completed_at
		FROM challenge_completions WHERE login = $1 ORDER BY completed_at, challenge_id`, login)
	if err != nil {
		return nil, perr.FromPostgres(err, "scoring: challenges")
	}
	return out, nil
}

// InsertChallenge implements domain.Ledger
func (s *pg) InsertChallenge(ctx context.Context, c domain.ChallengeCompletion) (bool, error) {
	return s.insertReturning(ctx, "scoring: insert challenge", `
		INSERT INTO challenge_completions (login, challenge_id, reward, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (login, challenge_id) DO NOTHING
		RETURNING true`, c.Actor, c.ChallengeID, c.Reward, c.CompletedAt.UTC())
}

// Counts implements domain.Ledger
func (s *pg) Counts(ctx context.Context, login string) (domain.LedgerCounts, error) {
	var c domain.LedgerCounts
	var pts int64
	err := s.q.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM processed_contributions WHERE login = $1),
			(SELECT count(*) FROM processed_reviews WHERE login = $1),
			(SELECT coalesce(sum(points), 0) FROM points_entries WHERE login = $1),
			(SELECT coalesce(sum(units), 0) FROM bill_grants WHERE login = $1)`,
		login).Scan(&c.Contributions, &c.Reviews, &pts, &c.BillUnits)
	if err != nil {
		return c, perr.FromPostgres(err, "scoring: ledger counts")
	}
	c.PointsSum = int(pts)
	return c, nil
}

// Watermark implements domain.Ledger
func (s *pg) Watermark(ctx context.Context) (time.Time, bool, error) {
	t, err := store.One(ctx, s.q, func(r store.Row) (time.Time, error) {
		var t time.Time
		return t, r.Scan(&t)
	}, `SELECT last_fetch_date FROM fetch_watermark WHERE id = 1`)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, perr.FromPostgres(err, "scoring: watermark")
	}
	return t, true, nil
}

// SetWatermark implements domain.Ledger
func (s *pg) SetWatermark(ctx context.Context, t time.Time) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO fetch_watermark (id, last_fetch_date) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_fetch_date = excluded.last_fetch_date, updated_at = now()`, t.UTC())
	if err != nil {
		return perr.FromPostgres(err, "scoring: set watermark")
	}
	return nil
}

// DeleteActor implements domain.Ledger, child rows go through ON DELETE CASCADE
func (s *pg) DeleteActor(ctx context.Context, login string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM actors WHERE login = $1`, login); err != nil {
		return perr.FromPostgres(err, "scoring: delete actor")
	}
	return nil
}

// DeleteAll implements domain.Ledger
func (s *pg) DeleteAll(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `TRUNCATE actors, processed_contributions, processed_reviews,
		points_entries, unlocks, bill_grants, challenge_completions`); err != nil {
		return perr.FromPostgres(err, "scoring: delete all")
	}
	return nil
}
