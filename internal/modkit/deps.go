// Package modkit provides module wiring and core deps
package modkit

import (
	"scorekeeper/internal/core/events"
	"scorekeeper/internal/modkit/repokit"
	"scorekeeper/internal/platform/config"
	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/metrics"
	"scorekeeper/internal/platform/store"
)

// Deps holds the shared dependencies every module is built from
// PG and CH are nil when the process runs without storage
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Metrics may be nil; the manager is nil safe
	Metrics *metrics.Manager
	// Events may be nil, modules fall back to discarding
	Events events.Emitter
}

// Emitter returns Events or a discarding emitter
func (d Deps) Emitter() events.Emitter {
	if d.Events == nil {
		return events.Discard{}
	}
	return d.Events
}
