// Package metrics provides Prometheus instrumentation for sync and scoring
// A nil *Manager is valid and records nothing so callers never branch on it
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all collectors for one registry
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	runs             *prometheus.CounterVec
	itemsProcessed   prometheus.Counter
	reviewsProcessed prometheus.Counter
	itemFailures     *prometheus.CounterVec
	rateRemaining    prometheus.Gauge
	rateWaits        prometheus.Counter
	duplicates       *prometheus.CounterVec
	unlocks          *prometheus.CounterVec
	bills            *prometheus.CounterVec
	drift            prometheus.Counter
	ghRequests       *prometheus.CounterVec
	eventTxLatency   prometheus.Histogram
}

// Option configures a Manager
type Option func(*Manager)

// WithNamespace overrides the metric namespace (default scorekeeper)
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry uses reg instead of a fresh private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// New builds a Manager on a private registry so tests can create many
func New(opts ...Option) *Manager {
	m := &Manager{namespace: "scorekeeper", registry: prometheus.NewRegistry()}
	for _, o := range opts {
		o(m)
	}
	m.init()
	return m
}

var (
	defOnce sync.Once
	def     *Manager
)

// Default returns the process wide manager used by the binaries
func Default() *Manager {
	defOnce.Do(func() { def = New() })
	return def
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "runs_total", Help: "Sync runs by terminal status",
	}, []string{"kind", "status"})

	m.itemsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "items_processed_total", Help: "Items walked by processing passes",
	})

	m.reviewsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "reviews_processed_total", Help: "Reviews newly recorded in the ledger",
	})

	m.itemFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "item_failures_total", Help: "Per item failures that did not abort the run",
	}, []string{"stage"})

	m.rateRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "rate_limit_remaining", Help: "Last observed upstream API budget",
	})

	m.rateWaits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sync",
		Name: "rate_limit_waits_total", Help: "Times the governor blocked for a reset",
	})

	m.duplicates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ledger",
		Name: "duplicates_total", Help: "Events already present in the ledger",
	}, []string{"kind"})

	m.unlocks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "scoring",
		Name: "unlocks_total", Help: "Achievement and badge unlocks",
	}, []string{"dimension"})

	m.bills = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "scoring",
		Name: "bills_granted_total", Help: "Bill units granted by rule",
	}, []string{"rule"})

	m.drift = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ledger",
		Name: "reconcile_drift_total", Help: "Actors found with aggregate and ledger drift",
	})

	m.ghRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "github",
		Name: "requests_total", Help: "Upstream requests by status class",
	}, []string{"status"})

	m.eventTxLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "ledger",
		Name: "event_tx_seconds", Help: "Latency of one ledger and projector transaction",
		Buckets: prometheus.DefBuckets,
	})
}

// Registry exposes the underlying registry for gathering in tests
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunFinished counts a terminal run state
func (m *Manager) RunFinished(kind, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, status).Inc()
}

// ItemProcessed counts one walked item
func (m *Manager) ItemProcessed() {
	if m == nil {
		return
	}
	m.itemsProcessed.Inc()
}

// ReviewsProcessed adds newly recorded reviews
func (m *Manager) ReviewsProcessed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reviewsProcessed.Add(float64(n))
}

// ItemFailed counts a skipped unit of work by stage (reviews, contribution)
func (m *Manager) ItemFailed(stage string) {
	if m == nil {
		return
	}
	m.itemFailures.WithLabelValues(stage).Inc()
}

// RateLimit records the last observed remaining budget
func (m *Manager) RateLimit(remaining int) {
	if m == nil {
		return
	}
	m.rateRemaining.Set(float64(remaining))
}

// RateWait counts one governor wait
func (m *Manager) RateWait() {
	if m == nil {
		return
	}
	m.rateWaits.Inc()
}

// Duplicate counts an event already in the ledger
func (m *Manager) Duplicate(kind string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(kind).Inc()
}

// Unlocked counts an unlock for a dimension
func (m *Manager) Unlocked(dimension string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(dimension).Inc()
}

// BillGranted adds granted units for a rule
func (m *Manager) BillGranted(rule string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.bills.WithLabelValues(rule).Add(float64(units))
}

// Drift counts actors with reconciliation drift
func (m *Manager) Drift(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.drift.Add(float64(n))
}

// GitHubRequest counts an upstream response by status class (2xx, 4xx, 5xx, err)
func (m *Manager) GitHubRequest(class string) {
	if m == nil {
		return
	}
	m.ghRequests.WithLabelValues(class).Inc()
}

// ObserveEventTx records one ledger transaction duration in seconds
func (m *Manager) ObserveEventTx(seconds float64) {
	if m == nil {
		return
	}
	m.eventTxLatency.Observe(seconds)
}
