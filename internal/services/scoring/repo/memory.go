package repo

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"scorekeeper/internal/services/scoring/domain"
)

type contribKey struct {
	login string
	item  int64
	role  domain.Role
}

type reviewKey struct {
	login  string
	item   int64
	review int64
}

type ownedKey struct{ login, id string }

// memState is the whole dataset, cloned per transaction
type memState struct {
	actors        map[string]domain.Actor
	contributions map[contribKey]time.Time
	reviews       map[reviewKey]time.Time
	points        []domain.PointsEntry
	unlocks       map[ownedKey]domain.Unlock
	bills         map[ownedKey]domain.BillGrant
	challenges    map[ownedKey]domain.ChallengeCompletion
	watermark     *time.Time
}

func newMemState() *memState {
	return &memState{
		actors:        map[string]domain.Actor{},
		contributions: map[contribKey]time.Time{},
		reviews:       map[reviewKey]time.Time{},
		unlocks:       map[ownedKey]domain.Unlock{},
		bills:         map[ownedKey]domain.BillGrant{},
		challenges:    map[ownedKey]domain.ChallengeCompletion{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		actors:        maps.Clone(s.actors),
		contributions: maps.Clone(s.contributions),
		reviews:       maps.Clone(s.reviews),
		points:        slices.Clone(s.points),
		unlocks:       maps.Clone(s.unlocks),
		bills:         maps.Clone(s.bills),
		challenges:    maps.Clone(s.challenges),
	}
	if s.watermark != nil {
		w := *s.watermark
		c.watermark = &w
	}
	return c
}

// Memory is an in process Store with serializable transactions, used by tests
// every transaction copies the whole state and a failed one leaves no trace
type Memory struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time

	// FailAfter makes the n-th write inside the next transactions fail, 0 disables
	FailAfter int
}

// NewMemory returns an empty in memory store
func NewMemory() *Memory {
	return &Memory{state: newMemState(), now: time.Now}
}

// Tx implements domain.Store
func (m *Memory) Tx(ctx context.Context, fn func(l domain.Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	l := &memLedger{s: work, now: m.now, failAfter: m.FailAfter}
	if err := fn(l); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memLedger struct {
	s         *memState
	now       func() time.Time
	writes    int
	failAfter int
}

// ErrInjected is returned by writes past FailAfter
var ErrInjected = errors.New("memory store: injected write failure")

var (
	_ domain.Store  = (*Memory)(nil)
	_ domain.Ledger = (*memLedger)(nil)
)

func (l *memLedger) write() error {
	l.writes++
	if l.failAfter > 0 && l.writes >= l.failAfter {
		return ErrInjected
	}
	return nil
}

func (l *memLedger) EnsureActor(_ context.Context, login string, at time.Time) (domain.Actor, error) {
	if a, ok := l.s.actors[login]; ok {
		return a, nil
	}
	a := domain.Actor{Login: login, CreatedAt: at.UTC(), UpdatedAt: at.UTC()}
	l.s.actors[login] = a
	return a, nil
}

func (l *memLedger) GetActor(_ context.Context, login string) (domain.Actor, error) {
	a, ok := l.s.actors[login]
	if !ok {
		return domain.Actor{}, domain.ErrActorNotFound
	}
	return a, nil
}

func (l *memLedger) SaveActor(_ context.Context, a domain.Actor) error {
	if err := l.write(); err != nil {
		return err
	}
	if _, ok := l.s.actors[a.Login]; !ok {
		return domain.ErrActorNotFound
	}
	a.UpdatedAt = l.now().UTC()
	l.s.actors[a.Login] = a
	return nil
}

func (l *memLedger) ListActors(context.Context) ([]string, error) {
	out := slices.Collect(maps.Keys(l.s.actors))
	slices.Sort(out)
	return out, nil
}

func (l *memLedger) RecordContribution(_ context.Context, login string, itemID int64, role domain.Role, at time.Time) (bool, error) {
	k := contribKey{login, itemID, role}
	if _, ok := l.s.contributions[k]; ok {
		return false, nil
	}
	if err := l.write(); err != nil {
		return false, err
	}
	l.s.contributions[k] = at.UTC()
	return true, nil
}

func (l *memLedger) RecordReview(_ context.Context, login string, itemID, reviewID int64, at time.Time) (bool, error) {
	k := reviewKey{login, itemID, reviewID}
	if _, ok := l.s.reviews[k]; ok {
		return false, nil
	}
	if err := l.write(); err != nil {
		return false, err
	}
	l.s.reviews[k] = at.UTC()
	return true, nil
}

func (l *memLedger) HasContribution(_ context.Context, login string, itemID int64, role domain.Role) (bool, error) {
	_, ok := l.s.contributions[contribKey{login, itemID, role}]
	return ok, nil
}

func (l *memLedger) HasReview(_ context.Context, login string, itemID, reviewID int64) (bool, error) {
	_, ok := l.s.reviews[reviewKey{login, itemID, reviewID}]
	return ok, nil
}

func (l *memLedger) ContributionTimes(_ context.Context, login string) ([]time.Time, error) {
	var out []time.Time
	for k, t := range l.s.contributions {
		if k.login == login && k.role == domain.RoleAuthor {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out, nil
}

func (l *memLedger) AppendPoints(_ context.Context, e domain.PointsEntry) error {
	if err := l.write(); err != nil {
		return err
	}
	l.s.points = append(l.s.points, e)
	return nil
}

func (l *memLedger) PointsBetween(_ context.Context, login string, from, to time.Time) ([]domain.PointsEntry, error) {
	var out []domain.PointsEntry
	for _, e := range l.s.points {
		if e.Actor == login && !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.PointsEntry) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func sortedOwned[T any](m map[ownedKey]T, login string, at func(T) time.Time) []T {
	type kv struct {
		id string
		v  T
	}
	var tmp []kv
	for k, v := range m {
		if k.login == login {
			tmp = append(tmp, kv{k.id, v})
		}
	}
	slices.SortFunc(tmp, func(a, b kv) int {
		if c := at(a.v).Compare(at(b.v)); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	out := make([]T, 0, len(tmp))
	for _, x := range tmp {
		out = append(out, x.v)
	}
	return out
}

func (l *memLedger) Unlocks(_ context.Context, login string) ([]domain.Unlock, error) {
	return sortedOwned(l.s.unlocks, login, func(u domain.Unlock) time.Time { return u.EarnedAt }), nil
}

func (l *memLedger) InsertUnlock(_ context.Context, u domain.Unlock) (bool, error) {
	k := ownedKey{u.Actor, u.ID}
	if _, ok := l.s.unlocks[k]; ok {
		return false, nil
	}
	if err := l.write(); err != nil {
		return false, err
	}
	l.s.unlocks[k] = u
	return true, nil
}

func (l *memLedger) Bills(_ context.Context, login string) ([]domain.BillGrant, error) {
	return sortedOwned(l.s.bills, login, func(b domain.BillGrant) time.Time { return b.GrantedAt }), nil
}

func (l *memLedger) InsertBill(_ context.Context, b domain.BillGrant) (bool, error) {
	k := ownedKey{b.Actor, b.ID}
	if _, ok := l.s.bills[k]; ok {
		return false, nil
	}
	if err := l.write(); err != nil {
		return false, err
	}
	l.s.bills[k] = b
	return true, nil
}

func (l *memLedger) Challenges(_ context.Context, login string) ([]domain.ChallengeCompletion, error) {
	return sortedOwned(l.s.challenges, login, func(c domain.ChallengeCompletion) time.Time { return c.CompletedAt }), nil
}

func (l *memLedger) InsertChallenge(_ context.Context, c domain.ChallengeCompletion) (bool, error) {
	k := ownedKey{c.Actor, c.ChallengeID}
	if _, ok := l.s.challenges[k]; ok {
		return false, nil
	}
	if err := l.write(); err != nil {
		return false, err
	}
	l.s.challenges[k] = c
	return true, nil
}

func (l *memLedger) Counts(_ context.Context, login string) (domain.LedgerCounts, error) {
	var c domain.LedgerCounts
	for k := range l.s.contributions {
		if k.login == login {
			c.Contributions++
		}
	}
	for k := range l.s.reviews {
		if k.login == login {
			c.Reviews++
		}
	}
	for _, e := range l.s.points {
		if e.Actor == login {
			c.PointsSum += e.Points
		}
	}
	for k, b := range l.s.bills {
		if k.login == login {
			c.BillUnits += b.Units
		}
	}
	return c, nil
}

func (l *memLedger) Watermark(context.Context) (time.Time, bool, error) {
	if l.s.watermark == nil {
		return time.Time{}, false, nil
	}
	return *l.s.watermark, true, nil
}

func (l *memLedger) SetWatermark(_ context.Context, t time.Time) error {
	if err := l.write(); err != nil {
		return err
	}
	t = t.UTC()
	l.s.watermark = &t
	return nil
}

func (l *memLedger) DeleteActor(_ context.Context, login string) error {
	if err := l.write(); err != nil {
		return err
	}
	delete(l.s.actors, login)
	maps.DeleteFunc(l.s.contributions, func(k contribKey, _ time.Time) bool { return k.login == login })
	maps.DeleteFunc(l.s.reviews, func(k reviewKey, _ time.Time) bool { return k.login == login })
	l.s.points = slices.DeleteFunc(l.s.points, func(e domain.PointsEntry) bool { return e.Actor == login })
	maps.DeleteFunc(l.s.unlocks, func(k ownedKey, _ domain.Unlock) bool { return k.login == login })
	maps.DeleteFunc(l.s.bills, func(k ownedKey, _ domain.BillGrant) bool { return k.login == login })
	maps.DeleteFunc(l.s.challenges, func(k ownedKey, _ domain.ChallengeCompletion) bool { return k.login == login })
	return nil
}

func (l *memLedger) DeleteAll(context.Context) error {
	if err := l.write(); err != nil {
		return err
	}
	w := l.s.watermark
	*l.s = *newMemState()
	l.s.watermark = w
	return nil
}

// Tamper mutates an actor outside any ledger write, used to simulate drift
func (m *Memory) Tamper(login string, fn func(*domain.Actor)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.actors[login]
	if !ok {
		return
	}
	fn(&a)
	m.state.actors[login] = a
}
