// Package service implements the sync orchestrator, governor and fetcher
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"scorekeeper/internal/core/events"
	"scorekeeper/internal/core/normalize"
	perr "scorekeeper/internal/platform/errors"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	scoring "scorekeeper/internal/services/scoring/domain"
	"scorekeeper/internal/services/sync/domain"

	"github.com/google/uuid"
)

// Config holds sync tuning
type Config struct {
	PageSize      int           // listing page size; <=0 -> 100
	RateThreshold int           // wait when remaining <= threshold; <0 -> 0
	RateBuffer    time.Duration // added after the reset instant
	FailBackoff   time.Duration // assumed reset when the quota check fails
	CheckEvery    int           // items between governor checks; <=0 -> 10
	OverscanPages int           // extra pages read past the window start
	// IncrementalLookback bounds the first incremental run when no watermark exists
	IncrementalLookback time.Duration
}

// Orchestrator drives runs through the fetcher, governor and scoring pipeline
type Orchestrator struct {
	src     domain.Source
	scoring domain.Scoring
	lock    domain.RunLock
	gov     *Governor
	fetch   *Fetcher
	cfg     Config

	events  events.Emitter
	metrics *metrics.Manager
	log     logger.Logger
	now     func() time.Time

	rep  *reporter
	stop atomic.Bool

	// cancelWait interrupts a governor wait when a stop is requested
	waitMu     sync.Mutex
	cancelWait context.CancelFunc

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ domain.RunnerPort = (*Orchestrator)(nil)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithEvents sets the emitter run events go to
func WithEvents(e events.Emitter) Option { return func(o *Orchestrator) { o.events = e } }

// WithMetrics sets the metrics manager
func WithMetrics(m *metrics.Manager) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New constructs an Orchestrator; the lock is injected so tests own independent instances
func New(src domain.Source, sc domain.Scoring, lock domain.RunLock, cfg Config, opts ...Option) *Orchestrator {
	if src == nil {
		panic("sync.Orchestrator requires a non nil Source")
	}
	if sc == nil {
		panic("sync.Orchestrator requires a non nil Scoring port")
	}
	if lock == nil {
		lock = NewLocalLock()
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = 10
	}
	if cfg.RateThreshold < 0 {
		cfg.RateThreshold = 0
	}
	if cfg.IncrementalLookback <= 0 {
		cfg.IncrementalLookback = 90 * 24 * time.Hour
	}
	base, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		src:     src,
		scoring: sc,
		lock:    lock,
		cfg:     cfg,
		events:  events.Discard{},
		log:     *logger.Named("sync"),
		now:     time.Now,
		base:    base,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.rep = &reporter{now: o.now, st: domain.RunState{Status: domain.StatusIdle}}
	o.gov = NewGovernor(src, cfg.RateBuffer, cfg.FailBackoff, o.metrics)
	o.gov.now = o.now
	o.gov.OnBudget = func(b domain.Budget) {
		o.rep.update(func(s *domain.RunState) {
			s.RateRemaining = b.Remaining
			r := b.ResetAt
			s.RateResetAt = &r
		})
	}
	o.fetch = NewFetcher(src, cfg.PageSize, cfg.OverscanPages)
	return o
}

// Governor exposes the quota gate
func (o *Orchestrator) Governor() *Governor { return o.gov }

// Close cancels background runs and waits for them
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Status implements domain.RunnerPort
func (o *Orchestrator) Status() domain.RunState { return o.rep.snapshot() }

// StopSync implements domain.RunnerPort
func (o *Orchestrator) StopSync() domain.Result {
	s := o.rep.snapshot()
	if !s.IsRunning {
		return domain.Result{Success: false, Message: "No sync is currently running"}
	}
	o.stop.Store(true)
	o.rep.update(func(s *domain.RunState) { s.ShouldStop = true })
	o.waitMu.Lock()
	if o.cancelWait != nil {
		o.cancelWait()
	}
	o.waitMu.Unlock()
	o.log.Info().Str("run_id", s.RunID).Msg("sync stop requested")
	return domain.Result{Success: true, Message: "Sync will stop after the current item", RunID: s.RunID}
}

// run is one acquired run
type run struct {
	id      string
	kind    domain.Kind
	window  domain.Window
	number  int
	release func()
	started time.Time
	// retry counts items whose failure may clear on a later pass
	retry int
}

// begin takes the run lock and resets the state
func (o *Orchestrator) begin(ctx context.Context, kind domain.Kind, w domain.Window, number int) (*run, error) {
	id := uuid.NewString()
	release, ok, err := o.lock.TryAcquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyRunning
	}
	r := &run{id: id, kind: kind, window: w, number: number, release: release, started: o.now()}
	o.stop.Store(false)
	started := r.started
	o.rep.update(func(s *domain.RunState) {
		*s = domain.RunState{
			RunID:         id,
			Kind:          kind,
			Status:        domain.StatusCounting,
			IsRunning:     true,
			StartedAt:     &started,
			RateRemaining: s.RateRemaining,
			RateResetAt:   s.RateResetAt,
			Message:       "Initializing",
		}
		if kind != domain.KindRecount {
			win := w
			s.Window = &win
		}
	})
	return r, nil
}

// StartSync implements domain.RunnerPort
func (o *Orchestrator) StartSync(ctx context.Context, start, end time.Time) (domain.Result, error) {
	w, err := o.window(start, end)
	if err != nil {
		return domain.Result{}, err
	}
	return o.launch(ctx, domain.KindBackfill, w, 0)
}

// StartIncremental implements domain.RunnerPort
func (o *Orchestrator) StartIncremental(ctx context.Context) (domain.Result, error) {
	w, err := o.incrementalWindow(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	return o.launch(ctx, domain.KindIncremental, w, 0)
}

// StartRecount implements domain.RunnerPort
func (o *Orchestrator) StartRecount(ctx context.Context, number int) (domain.Result, error) {
	if number <= 0 {
		return domain.Result{}, perr.InvalidArgf("sync: item number %d", number)
	}
	return o.launch(ctx, domain.KindRecount, domain.Window{}, number)
}

// launch acquires the lock on the caller's goroutine so a busy lock is reported at once
func (o *Orchestrator) launch(ctx context.Context, kind domain.Kind, w domain.Window, number int) (domain.Result, error) {
	r, err := o.begin(ctx, kind, w, number)
	if perr.IsCode(err, perr.ErrorCodeConflict) {
		return domain.Result{Success: false, Message: "Sync is already running"}, nil
	}
	if err != nil {
		return domain.Result{}, err
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.base, r)
	}()
	return domain.Result{Success: true, Message: fmt.Sprintf("%s started", kind), RunID: r.id}, nil
}

// RunSync implements domain.RunnerPort
func (o *Orchestrator) RunSync(ctx context.Context, start, end time.Time) (domain.RunState, error) {
	w, err := o.window(start, end)
	if err != nil {
		return domain.RunState{}, err
	}
	return o.runBlocking(ctx, domain.KindBackfill, w, 0)
}

// RunIncremental implements domain.RunnerPort
func (o *Orchestrator) RunIncremental(ctx context.Context) (domain.RunState, error) {
	w, err := o.incrementalWindow(ctx)
	if err != nil {
		return domain.RunState{}, err
	}
	return o.runBlocking(ctx, domain.KindIncremental, w, 0)
}

// RecountItem implements domain.RunnerPort
func (o *Orchestrator) RecountItem(ctx context.Context, number int) (domain.RunState, error) {
	if number <= 0 {
		return domain.RunState{}, perr.InvalidArgf("sync: item number %d", number)
	}
	return o.runBlocking(ctx, domain.KindRecount, domain.Window{}, number)
}

func (o *Orchestrator) runBlocking(ctx context.Context, kind domain.Kind, w domain.Window, number int) (domain.RunState, error) {
	r, err := o.begin(ctx, kind, w, number)
	if err != nil {
		return o.Status(), err
	}
	o.execute(ctx, r)
	st := o.Status()
	if st.Status == domain.StatusError {
		return st, perr.Newf(perr.ErrorCodeUnavailable, "sync: %s run failed: %s", kind, st.Error)
	}
	return st, nil
}

func (o *Orchestrator) window(start, end time.Time) (domain.Window, error) {
	if start.IsZero() {
		return domain.Window{}, perr.InvalidArgf("sync: start date required")
	}
	if end.IsZero() {
		end = o.now()
	}
	if end.Before(start) {
		return domain.Window{}, perr.InvalidArgf("sync: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return domain.Window{Start: start.UTC(), End: end.UTC()}, nil
}

func (o *Orchestrator) incrementalWindow(ctx context.Context) (domain.Window, error) {
	now := o.now().UTC()
	wm, ok, err := o.scoring.Watermark(ctx)
	if err != nil {
		return domain.Window{}, err
	}
	if !ok || wm.After(now) {
		wm = now.Add(-o.cfg.IncrementalLookback)
	}
	return domain.Window{Start: wm.UTC(), End: now}, nil
}

// execute runs r to a terminal state and releases the lock
func (o *Orchestrator) execute(ctx context.Context, r *run) {
	defer r.release()
	ctx = logger.WithRunID(ctx, r.id)
	log := logger.C(ctx)

	waitCtx, cancelWait := context.WithCancel(ctx)
	o.waitMu.Lock()
	o.cancelWait = cancelWait
	if o.stop.Load() {
		cancelWait()
	}
	o.waitMu.Unlock()
	defer func() {
		o.waitMu.Lock()
		o.cancelWait = nil
		o.waitMu.Unlock()
		cancelWait()
	}()

	log.Info().Str("kind", string(r.kind)).
		Time("start", r.window.Start).Time("end", r.window.End).Int("number", r.number).
		Msg("sync run started")

	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = perr.Newf(perr.ErrorCodePanic, "sync: panic: %v", p)
			}
		}()
		err = o.drive(ctx, waitCtx, r)
	}()
	o.finish(ctx, r, err)
}

func (o *Orchestrator) drive(ctx, waitCtx context.Context, r *run) error {
	gate := func() error { return o.gov.WaitIfNeeded(waitCtx, o.cfg.RateThreshold) }

	var items []domain.Item
	switch r.kind {
	case domain.KindRecount:
		if err := gate(); err != nil {
			return o.stopOr(err)
		}
		it, err := o.src.Item(ctx, r.number)
		if err != nil {
			return err
		}
		if !it.Merged() {
			o.rep.update(func(s *domain.RunState) { s.Message = fmt.Sprintf("Item #%d is not merged", r.number) })
			return nil
		}
		items = []domain.Item{it}
	default:
		var err error
		if items, err = o.count(ctx, r, gate); err != nil {
			return err
		}
	}
	if o.stop.Load() {
		return nil
	}
	return o.process(ctx, r, items, gate)
}

// count is the dry pass; it gathers the window so processing can replay it oldest first
func (o *Orchestrator) count(ctx context.Context, r *run, gate func() error) ([]domain.Item, error) {
	o.rep.update(func(s *domain.RunState) {
		s.Status = domain.StatusCounting
		s.Message = "Counting items"
	})
	var items []domain.Item
	for it, err := range o.fetch.Items(ctx, r.window, gate) {
		if err != nil {
			return nil, o.stopOr(err)
		}
		if o.stop.Load() {
			return nil, nil
		}
		items = append(items, it)
		n := len(items)
		o.rep.update(func(s *domain.RunState) { s.TotalItems = n })
	}
	slices.SortStableFunc(items, func(a, b domain.Item) int {
		if c := a.MergedAt.Compare(*b.MergedAt); c != 0 {
			return c
		}
		return a.Number - b.Number
	})
	logger.C(ctx).Info().Int("items", len(items)).Msg("sync window counted")
	return items, nil
}

// stopOr maps a gate interrupted by a stop request to a clean stop
func (o *Orchestrator) stopOr(err error) error {
	if o.stop.Load() {
		return nil
	}
	return err
}

func (o *Orchestrator) process(ctx context.Context, r *run, items []domain.Item, gate func() error) error {
	o.rep.update(func(s *domain.RunState) {
		s.Status = domain.StatusProcessing
		s.TotalItems = len(items)
		s.Message = "Processing items"
	})
	for i, it := range items {
		if o.stop.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && i%o.cfg.CheckEvery == 0 {
			if err := gate(); err != nil {
				return o.stopOr(err)
			}
		}
		o.rep.update(func(s *domain.RunState) {
			s.CurrentItem = it.Number
			s.Message = fmt.Sprintf("Processing #%d", it.Number)
		})

		added, reviews, failed, retry := o.processItem(ctx, it)
		if retry {
			r.retry++
		}

		o.metrics.ItemProcessed()
		o.metrics.ReviewsProcessed(reviews)
		var snap domain.RunState
		o.rep.update(func(s *domain.RunState) {
			s.ProcessedItems++
			s.NewContributions += added
			s.ProcessedReviews += reviews
			if failed {
				s.FailedItems++
			}
			snap = *s
		})
		o.events.Emit(ctx, events.New(events.SystemActor, events.KindRunProgress, map[string]any{
			"runId":            r.id,
			"processedItems":   snap.ProcessedItems,
			"totalItems":       snap.TotalItems,
			"processedReviews": snap.ProcessedReviews,
			"currentItem":      it.Number,
		}))
	}
	return nil
}

// processItem records the authored contribution then every review on the item
// failures are logged and counted, they never end the run; retry reports a
// failure that a later pass may clear
func (o *Orchestrator) processItem(ctx context.Context, it domain.Item) (added, reviews int, failed, retry bool) {
	log := logger.C(ctx).With().Int("item", it.Number).Logger()
	fail := func(err error) {
		failed = true
		retry = retry || transient(err)
	}

	author := normalize.Login(it.Author)
	// deleted accounts come back without a login and have nobody to credit
	if author == "" {
		log.Debug().Msg("item has no author, contribution skipped")
	} else {
		res, err := o.scoring.ApplyContribution(ctx, scoring.Contribution{
			ItemID:   int64(it.Number),
			Actor:    it.Author,
			Role:     scoring.RoleAuthor,
			Title:    it.Title,
			Labels:   it.Labels,
			MergedAt: *it.MergedAt,
		})
		switch {
		case err != nil:
			fail(err)
			o.metrics.ItemFailed("contribution")
			log.Warn().Err(err).Str("actor", it.Author).Msg("contribution not recorded")
		case res.Applied:
			added = 1
		}
	}

	// reviews are fetched even when the contribution was already counted
	rs, err := o.src.Reviews(ctx, it.Number)
	if err != nil {
		fail(err)
		o.metrics.ItemFailed("reviews")
		log.Warn().Err(err).Msg("review fetch failed, no reviews counted this pass")
		return added, 0, failed, retry
	}
	for _, rv := range rs {
		who := normalize.Login(rv.Author)
		if who == "" || who == author {
			continue
		}
		at := *it.MergedAt
		if rv.SubmittedAt != nil {
			at = *rv.SubmittedAt
		}
		res, err := o.scoring.ApplyReview(ctx, scoring.ReviewEvent{
			ItemID:      int64(it.Number),
			ReviewID:    rv.ID,
			Actor:       rv.Author,
			State:       rv.State,
			SubmittedAt: at,
		})
		if err != nil {
			fail(err)
			o.metrics.ItemFailed("review")
			log.Warn().Err(err).Int64("review", rv.ID).Str("actor", rv.Author).Msg("review not recorded")
			continue
		}
		if res.Applied {
			reviews++
		}
	}
	return added, reviews, failed, retry
}

// transient reports errors worth another pass: upstream throttling or outage,
// timeouts and storage faults that survived the per event retries
// validation and not found errors repeat on every pass and never count
func transient(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnavailable, perr.ErrorCodeTooManyRequests, perr.ErrorCodeDB:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || perr.Retryable(err)
}

// finish moves the run to its terminal state and advances the watermark
// unless an incremental run left items a later pass could still record
func (o *Orchestrator) finish(ctx context.Context, r *run, err error) {
	log := logger.C(ctx)
	end := o.now()

	status := domain.StatusCompleted
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		status = domain.StatusStopped
	case err != nil:
		status = domain.StatusError
	case o.stop.Load():
		status = domain.StatusStopped
	}

	var snap domain.RunState
	o.rep.update(func(s *domain.RunState) {
		s.Status = status
		s.IsRunning = false
		s.CurrentItem = 0
		s.EndedAt = &end
		switch status {
		case domain.StatusError:
			s.Error = err.Error()
			s.Message = "Sync failed"
		case domain.StatusStopped:
			s.Message = "Sync stopped"
		default:
			if s.Message == "" || !strings.HasPrefix(s.Message, "Item #") {
				s.Message = "Sync completed"
			}
		}
		snap = *s
	})

	if status == domain.StatusCompleted && r.kind == domain.KindIncremental {
		if r.retry > 0 {
			log.Warn().Int("failed", snap.FailedItems).Int("retryable", r.retry).Msg("watermark held back, run had retryable failures")
		} else if werr := o.scoring.SetWatermark(context.WithoutCancel(ctx), r.started); werr != nil {
			log.Error().Err(werr).Msg("watermark not advanced")
		}
	}

	o.metrics.RunFinished(string(r.kind), string(status))
	o.events.Emit(ctx, events.New(events.SystemActor, events.KindRunFinished, map[string]any{
		"runId":            r.id,
		"kind":             string(r.kind),
		"status":           string(status),
		"totalItems":       snap.TotalItems,
		"processedItems":   snap.ProcessedItems,
		"newContributions": snap.NewContributions,
		"processedReviews": snap.ProcessedReviews,
		"failedItems":      snap.FailedItems,
		"error":            snap.Error,
	}))

	ev := log.Info()
	if status == domain.StatusError {
		ev = log.Error().Err(err)
	}
	ev.Str("kind", string(r.kind)).
		Str("status", string(status)).
		Int("total", snap.TotalItems).
		Int("processed", snap.ProcessedItems).
		Int("new_contributions", snap.NewContributions).
		Int("duplicates", snap.ProcessedItems-snap.NewContributions).
		Int("reviews", snap.ProcessedReviews).
		Int("failed", snap.FailedItems).
		Dur("took", end.Sub(r.started)).
		Msg("sync run finished")
}
