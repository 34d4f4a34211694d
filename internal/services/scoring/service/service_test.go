package service

import (
	"context"
	"testing"
	"time"

	"scorekeeper/internal/core/events"
	"scorekeeper/internal/core/rules"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/testkit"
	"scorekeeper/internal/services/scoring/domain"
	"scorekeeper/internal/services/scoring/repo"

	"github.com/jackc/pgx/v5/pgconn"
)

var t0 = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func newSvc(t *testing.T) (*Service, *repo.Memory, *events.Recorder) {
	t.Helper()
	mem := repo.NewMemory()
	rec := events.NewRecorder(0)
	s := New(mem, rules.NewEngine(rules.WithSkipBots(true)), Config{TxRetries: 3, RetryBase: time.Millisecond},
		WithEvents(events.NewHub(rec)),
		WithClock(func() time.Time { return t0.Add(24 * time.Hour) }),
	)
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s, mem, rec
}

func pr(id int64, who string, at time.Time, labels ...string) domain.Contribution {
	return domain.Contribution{ItemID: id, Actor: who, Role: domain.RoleAuthor, MergedAt: at, Labels: labels}
}

func review(item, id int64, who, state string, at time.Time) domain.ReviewEvent {
	return domain.ReviewEvent{ItemID: item, ReviewID: id, Actor: who, State: state, SubmittedAt: at}
}

func TestNew_PanicsOnNilStore(t *testing.T) {
	testkit.MustPanic(t, func() { New(nil, nil, Config{}) })
}

func TestApplyContribution_FirstPR(t *testing.T) {
	s, _, rec := newSvc(t)
	ctx := context.Background()

	res, err := s.ApplyContribution(ctx, pr(1, "Alice", t0))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied || res.Points != 40 || res.Streak != rules.StreakStarted {
		t.Fatalf("unexpected result %+v", res)
	}
	ids := map[string]bool{}
	for _, u := range res.Unlocks {
		ids[u.ID] = true
	}
	if !ids["first-pr"] || !ids["pr-badge-1"] || len(ids) != 2 {
		t.Fatalf("unlocks = %v", ids)
	}

	v, err := s.Actor(ctx, "alice")
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	a := v.Actor
	if a.PRCount != 1 || a.TotalPoints != 90 || a.CurrentStreak != 1 || a.LongestStreak != 1 {
		t.Fatalf("actor = %+v", a)
	}
	if len(rec.OfKind(events.KindAchievement)) != 1 || len(rec.OfKind(events.KindBadgeUnlocked)) != 1 {
		t.Fatalf("unlock events = %d/%d", len(rec.OfKind(events.KindAchievement)), len(rec.OfKind(events.KindBadgeUnlocked)))
	}
}

func TestApplyContribution_Idempotent(t *testing.T) {
	s, _, rec := newSvc(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.ApplyContribution(ctx, pr(7, "alice", t0, "bug")); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	v, _ := s.Actor(ctx, "alice")
	if v.Actor.PRCount != 1 {
		t.Fatalf("prCount = %d, want 1", v.Actor.PRCount)
	}
	// bug 50 + first-pr 50
	if v.Actor.TotalPoints != 100 {
		t.Fatalf("totalPoints = %d, want 100", v.Actor.TotalPoints)
	}
	if n := len(rec.OfKind(events.KindAchievement)); n != 1 {
		t.Fatalf("achievement events = %d, want 1", n)
	}
}

func TestApplyContribution_Validation(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()
	cases := []domain.Contribution{
		{ItemID: 1, MergedAt: t0},
		{ItemID: 0, Actor: "a", MergedAt: t0},
		{ItemID: 1, Actor: "a"},
		{ItemID: 1, Actor: "a", Role: "reviewer", MergedAt: t0},
	}
	for i, c := range cases {
		if _, err := s.ApplyContribution(ctx, c); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("case %d: want invalid argument, got %v", i, err)
		}
	}
}

func TestApplyContribution_RollsBackOnFailure(t *testing.T) {
	s, mem, rec := newSvc(t)
	ctx := context.Background()

	mem.FailAfter = 2
	if _, err := s.ApplyContribution(ctx, pr(1, "alice", t0)); err == nil {
		t.Fatal("want injected failure")
	}
	if _, err := s.Actor(ctx, "alice"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("actor should not exist after rollback, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("no events expected after rollback, got %d", len(rec.Events()))
	}

	mem.FailAfter = 0
	res, err := s.ApplyContribution(ctx, pr(1, "alice", t0))
	if err != nil || !res.Applied {
		t.Fatalf("reapply after rollback: %+v %v", res, err)
	}
}

type flakyStore struct {
	domain.Store
	fails int
	calls int
}

func (f *flakyStore) Tx(ctx context.Context, fn func(domain.Ledger) error) error {
	f.calls++
	if f.calls <= f.fails {
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	return f.Store.Tx(ctx, fn)
}

func TestTx_RetriesSerializationFailures(t *testing.T) {
	fs := &flakyStore{Store: repo.NewMemory(), fails: 2}
	s := New(fs, nil, Config{TxRetries: 3, RetryBase: time.Millisecond})
	var slept int
	s.sleep = func(context.Context, time.Duration) error { slept++; return nil }

	res, err := s.ApplyContribution(context.Background(), pr(1, "alice", t0))
	if err != nil || !res.Applied {
		t.Fatalf("apply: %+v %v", res, err)
	}
	if fs.calls != 3 || slept != 2 {
		t.Fatalf("calls=%d slept=%d", fs.calls, slept)
	}

	fs.calls, fs.fails = 0, 5
	if _, err := s.ApplyContribution(context.Background(), pr(2, "alice", t0)); err == nil {
		t.Fatal("want error after retries exhausted")
	}
	if fs.calls != 3 {
		t.Fatalf("calls=%d, want 3", fs.calls)
	}
}

func TestApplyReview_StatesAndDuplicates(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	res, err := s.ApplyReview(ctx, review(1, 10, "bob", "CHANGES_REQUESTED", t0))
	if err != nil || res.Applied {
		t.Fatalf("changes requested should be ignored: %+v %v", res, err)
	}
	if _, err := s.Actor(ctx, "bob"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("ignored review must not create the actor: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := s.ApplyReview(ctx, review(1, 11, "bob", "APPROVED", t0)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if _, err := s.ApplyReview(ctx, review(1, 12, "bob", "COMMENTED", t0)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	v, _ := s.Actor(ctx, "bob")
	if v.Actor.ReviewCount != 2 || v.Actor.TotalPoints != 30 {
		t.Fatalf("actor = %+v", v.Actor)
	}
	// reviews never touch the streak
	if v.Actor.CurrentStreak != 0 {
		t.Fatalf("streak = %d", v.Actor.CurrentStreak)
	}
}

func TestApplyReview_UncountedStateSkipsActorCheck(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	for _, state := range []string{"DISMISSED", "PENDING"} {
		res, err := s.ApplyReview(ctx, review(1, 20, "", state, t0))
		if err != nil || res.Applied {
			t.Fatalf("%s without actor: %+v %v", state, res, err)
		}
	}
	if _, err := s.ApplyReview(ctx, review(1, 21, "", "APPROVED", t0)); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("counted review without actor: %v", err)
	}
}

func TestApplyContribution_StreakAcrossDays(t *testing.T) {
	s, _, rec := newSvc(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.ApplyContribution(ctx, pr(int64(i+1), "carol", t0.AddDate(0, 0, i))); err != nil {
			t.Fatal(err)
		}
	}
	// same day does not extend
	if _, err := s.ApplyContribution(ctx, pr(4, "carol", t0.AddDate(0, 0, 2).Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	// gap resets
	if _, err := s.ApplyContribution(ctx, pr(5, "carol", t0.AddDate(0, 0, 6))); err != nil {
		t.Fatal(err)
	}
	v, _ := s.Actor(ctx, "carol")
	if v.Actor.CurrentStreak != 1 || v.Actor.LongestStreak != 3 || v.Actor.PRCount != 5 {
		t.Fatalf("actor = %+v", v.Actor)
	}
	if n := len(rec.OfKind(events.KindStreak)); n != 4 {
		t.Fatalf("streak events = %d, want 4", n)
	}
}

func TestApplyReview_HundredReviewsGrantsBills(t *testing.T) {
	s, _, rec := newSvc(t)
	ctx := context.Background()

	for i := int64(1); i <= 100; i++ {
		if _, err := s.ApplyReview(ctx, review(i, 1000+i, "dana", "APPROVED", t0)); err != nil {
			t.Fatal(err)
		}
	}
	v, _ := s.Actor(ctx, "dana")
	// first-10 plus volume-1
	if v.Actor.TotalBillsAwarded != 2 || len(v.Bills) != 2 {
		t.Fatalf("bills = %d %+v", v.Actor.TotalBillsAwarded, v.Bills)
	}
	// 100*15 + 75 + 200 + 400 + points-1000 100
	if v.Actor.TotalPoints != 2275 {
		t.Fatalf("points = %d", v.Actor.TotalPoints)
	}
	if n := len(rec.OfKind(events.KindBill)); n != 2 {
		t.Fatalf("bill events = %d", n)
	}
}

func TestApply_BotsCountedButNotRewarded(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	res, err := s.ApplyContribution(ctx, pr(1, "dependabot[bot]", t0))
	if err != nil || !res.Applied {
		t.Fatalf("apply: %+v %v", res, err)
	}
	if len(res.Unlocks) != 0 || len(res.Bills) != 0 {
		t.Fatalf("bots must not unlock: %+v", res)
	}
	v, _ := s.Actor(ctx, "dependabot[bot]")
	if v.Actor.PRCount != 1 || v.Actor.TotalPoints != 40 {
		t.Fatalf("actor = %+v", v.Actor)
	}
}

func TestCompleteChallenge_OncePerChallenge(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	res, err := s.CompleteChallenge(ctx, "erin", "weekly-1", 25, t0)
	if err != nil || !res.Applied {
		t.Fatalf("complete: %+v %v", res, err)
	}
	if len(res.Unlocks) != 1 || res.Unlocks[0].ID != "challenge-1" {
		t.Fatalf("unlocks = %+v", res.Unlocks)
	}
	res, err = s.CompleteChallenge(ctx, "erin", "weekly-1", 25, t0)
	if err != nil || res.Applied {
		t.Fatalf("duplicate: %+v %v", res, err)
	}
	v, _ := s.Actor(ctx, "erin")
	if v.Actor.TotalPoints != 125 || len(v.Challenges) != 1 {
		t.Fatalf("actor = %+v challenges=%d", v.Actor, len(v.Challenges))
	}
	if _, err := s.CompleteChallenge(ctx, "erin", "x", -1, t0); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("negative reward: %v", err)
	}
}

func TestReconcileAndRebuild(t *testing.T) {
	s, mem, _ := newSvc(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.ApplyContribution(ctx, pr(int64(i+1), "frank", t0.AddDate(0, 0, i))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.ApplyReview(ctx, review(9, 90, "frank", "APPROVED", t0)); err != nil {
		t.Fatal(err)
	}
	drift, err := s.Reconcile(ctx, "")
	if err != nil || len(drift) != 0 {
		t.Fatalf("clean ledger drifted: %+v %v", drift, err)
	}

	before, _ := s.Actor(ctx, "frank")
	mem.Tamper("frank", func(a *domain.Actor) {
		a.PRCount += 5
		a.TotalPoints = 0
		a.CurrentStreak, a.LongestStreak = 0, 0
	})

	drift, err = s.Reconcile(ctx, "frank")
	if err != nil || len(drift) != 1 || drift[0].Contributions != 3 || drift[0].PRCount != 8 {
		t.Fatalf("drift = %+v %v", drift, err)
	}
	// reconcile never fixes anything
	if again, _ := s.Reconcile(ctx, ""); len(again) != 1 {
		t.Fatalf("reconcile corrected state: %+v", again)
	}

	a, err := s.Rebuild(ctx, "frank")
	if err != nil {
		t.Fatal(err)
	}
	if a.PRCount != 3 || a.ReviewCount != 1 || a.TotalPoints != before.Actor.TotalPoints {
		t.Fatalf("rebuilt = %+v, before %+v", a, before.Actor)
	}
	if a.CurrentStreak != 3 || a.LongestStreak != 3 {
		t.Fatalf("streak not replayed: %+v", a)
	}
	if drift, _ := s.Reconcile(ctx, ""); len(drift) != 0 {
		t.Fatalf("drift after rebuild: %+v", drift)
	}
	if _, err := s.Reconcile(ctx, "nobody"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown actor: %v", err)
	}
}

func TestReset(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	if _, err := s.ApplyContribution(ctx, pr(1, "gail", t0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyContribution(ctx, pr(2, "hank", t0)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetWatermark(ctx, t0); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(ctx, "gail"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Actor(ctx, "gail"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("gail survived reset: %v", err)
	}
	if _, err := s.Actor(ctx, "hank"); err != nil {
		t.Fatalf("hank lost: %v", err)
	}
	// ledger rows went with the actor
	res, err := s.ApplyContribution(ctx, pr(1, "gail", t0))
	if err != nil || !res.Applied {
		t.Fatalf("reapply after reset: %+v %v", res, err)
	}

	if err := s.ResetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Actor(ctx, "hank"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("hank survived reset all: %v", err)
	}
	w, ok, err := s.Watermark(ctx)
	if err != nil || !ok || !w.Equal(t0) {
		t.Fatalf("watermark = %v %v %v", w, ok, err)
	}
	if err := s.Reset(ctx, "ghost"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("reset unknown: %v", err)
	}
}

func TestPoints_Window(t *testing.T) {
	s, _, _ := newSvc(t)
	ctx := context.Background()

	if _, err := s.ApplyContribution(ctx, pr(1, "ivy", t0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyReview(ctx, review(5, 50, "ivy", "APPROVED", t0.Add(2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	all, err := s.Points(ctx, "ivy", t0.Add(-time.Hour), time.Time{})
	if err != nil || len(all) != 3 {
		t.Fatalf("points = %+v %v", all, err)
	}
	early, err := s.Points(ctx, "ivy", t0, t0.Add(time.Hour))
	if err != nil || len(early) != 2 {
		t.Fatalf("early = %+v %v", early, err)
	}
	if _, err := s.Points(ctx, "ivy", t0, t0); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("empty range: %v", err)
	}
}

func TestSetWatermark_RejectsZero(t *testing.T) {
	s, _, _ := newSvc(t)
	if err := s.SetWatermark(context.Background(), time.Time{}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("zero watermark: %v", err)
	}
}

func TestApplyContribution_TenthPRCrossesMilestones(t *testing.T) {
	s, _, rec := newSvc(t)
	ctx := context.Background()

	// every other day, no streak unlocks get in the way
	for i := 1; i <= 9; i++ {
		if _, err := s.ApplyContribution(ctx, pr(int64(i), "alice", t0.AddDate(0, 0, 2*i))); err != nil {
			t.Fatalf("pr %d: %v", i, err)
		}
	}
	before := len(rec.OfKind(events.KindBill))

	res, err := s.ApplyContribution(ctx, pr(10, "alice", t0.AddDate(0, 0, 20)))
	if err != nil {
		t.Fatalf("pr 10: %v", err)
	}
	ids := map[string]bool{}
	for _, u := range res.Unlocks {
		ids[u.ID] = true
	}
	if !ids["pr-10"] || !ids["pr-badge-10"] || len(ids) != 2 {
		t.Fatalf("unlocks = %v", ids)
	}
	if len(res.Bills) != 1 || res.Bills[0].Rule != "first-10" {
		t.Fatalf("bills = %+v", res.Bills)
	}
	if got := len(rec.OfKind(events.KindBill)) - before; got != 1 {
		t.Fatalf("bill events = %d", got)
	}

	v, err := s.Actor(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if v.Actor.PRCount != 10 || v.Actor.TotalBillsAwarded != 1 || v.Actor.LongestStreak != 1 {
		t.Fatalf("actor = %+v", v.Actor)
	}
}
