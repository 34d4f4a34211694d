package events

import (
	"context"

	"scorekeeper/internal/platform/logger"
	"scorekeeper/internal/platform/store"
)

// LogSink writes events to a zerolog logger
type LogSink struct {
	Log *logger.Logger
}

// Name implements Sink
func (LogSink) Name() string { return "log" }

// Write implements Sink
func (s LogSink) Write(_ context.Context, evs []Event) error {
	l := s.Log
	if l == nil {
		l = logger.Named("events")
	}
	for _, e := range evs {
		ev := l.Info()
		if e.Kind == KindRunProgress {
			ev = l.Debug()
		}
		ev.Str("event_id", e.ID.String()).
			Str("actor", e.Actor).
			Str("kind", string(e.Kind)).
			Interface("payload", e.Payload).
			Time("ts", e.Timestamp).
			Msg("domain event")
	}
	return nil
}

// DefaultTable is the ClickHouse table events are mirrored into
const DefaultTable = "scorekeeper_events"

// ClickhouseSink mirrors events into a columnar table for analytics
// columns: event_id, actor, kind, payload, ts
type ClickhouseSink struct {
	CH    store.Clickhouse
	Table string
	// SkipProgress drops run progress ticks which are high volume
	SkipProgress bool
}

// Name implements Sink
func (ClickhouseSink) Name() string { return "clickhouse" }

// Write implements Sink
func (s ClickhouseSink) Write(ctx context.Context, evs []Event) error {
	if s.CH == nil {
		return nil
	}
	table := s.Table
	if table == "" {
		table = DefaultTable
	}
	rows := make([][]any, 0, len(evs))
	for _, e := range evs {
		if s.SkipProgress && e.Kind == KindRunProgress {
			continue
		}
		rows = append(rows, []any{e.ID.String(), e.Actor, string(e.Kind), e.PayloadJSON(), e.Timestamp})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.CH.Insert(ctx, table, rows)
}

// ClickhouseDDL creates the mirror table
const ClickhouseDDL = `CREATE TABLE IF NOT EXISTS scorekeeper_events (
	event_id String,
	actor    LowCardinality(String),
	kind     LowCardinality(String),
	payload  String,
	ts       DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (kind, actor, ts)`
