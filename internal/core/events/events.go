// Package events carries domain events from the scoring core to whoever
// listens: logs, the analytics mirror, push collaborators
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"scorekeeper/internal/platform/logger"

	"github.com/google/uuid"
)

// Kind names what happened
type Kind string

const (
	KindBadgeUnlocked Kind = "badge_unlocked"
	KindAchievement   Kind = "achievement_unlocked"
	KindPoints        Kind = "points_changed"
	KindStreak        Kind = "streak_changed"
	KindBill          Kind = "bill_granted"
	KindRunProgress   Kind = "run_progress"
	KindRunFinished   Kind = "run_finished"
)

// SystemActor is the actor on run level events
const SystemActor = "system"

// Event is the payload handed to collaborators
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Actor     string         `json:"actor"`
	Kind      Kind           `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New stamps an event with a fresh id and the current time
func New(actor string, kind Kind, payload map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		Actor:     actor,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// PayloadJSON renders the payload for sinks that store it as text
func (e Event) PayloadJSON() string {
	if len(e.Payload) == 0 {
		return "{}"
	}
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Emitter is what producers depend on
type Emitter interface {
	Emit(ctx context.Context, evs ...Event)
}

// Sink receives events from a Hub
type Sink interface {
	Name() string
	Write(ctx context.Context, evs []Event) error
}

// Hub fans events out to every registered sink
// sink failures are logged and never reach the producer
type Hub struct {
	mu    sync.RWMutex
	sinks []Sink
	log   logger.Logger
}

// NewHub returns a hub over sinks
func NewHub(sinks ...Sink) *Hub {
	return &Hub{sinks: sinks, log: *logger.Named("events")}
}

// Add registers another sink
func (h *Hub) Add(s Sink) {
	h.mu.Lock()
	h.sinks = append(h.sinks, s)
	h.mu.Unlock()
}

// Emit implements Emitter
func (h *Hub) Emit(ctx context.Context, evs ...Event) {
	if h == nil || len(evs) == 0 {
		return
	}
	h.mu.RLock()
	sinks := h.sinks
	h.mu.RUnlock()
	for _, s := range sinks {
		if err := s.Write(ctx, evs); err != nil {
			h.log.Warn().Err(err).Str("sink", s.Name()).Int("events", len(evs)).Msg("event sink write failed")
		}
	}
}

// Discard drops everything
type Discard struct{}

// Emit implements Emitter
func (Discard) Emit(context.Context, ...Event) {}

// Recorder keeps events in memory, used by tests and the status endpoint
type Recorder struct {
	mu  sync.Mutex
	evs []Event
	max int
}

// NewRecorder keeps at most max events, 0 means unbounded
func NewRecorder(max int) *Recorder { return &Recorder{max: max} }

// Name implements Sink
func (r *Recorder) Name() string { return "recorder" }

// Write implements Sink
func (r *Recorder) Write(_ context.Context, evs []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
	if r.max > 0 && len(r.evs) > r.max {
		r.evs = append([]Event(nil), r.evs[len(r.evs)-r.max:]...)
	}
	return nil
}

// Events returns a copy of what was recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.evs...)
}

// OfKind filters recorded events
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
