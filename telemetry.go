package runlog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the journal's OTEL counters. Counters come from the
// global MeterProvider; configure it before constructing journals
// (typically via clue.ConfigureOpenTelemetry). Instrument creation
// failures are skipped silently so an unconfigured provider never gets
// in the way of appends.
type metrics struct {
	appends   metric.Int64Counter
	replays   metric.Int64Counter
	conflicts metric.Int64Counter
	replayed  metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter("goa.design/runlog")
	m := &metrics{}
	m.appends, _ = meter.Int64Counter("runlog.appends",
		metric.WithDescription("Events durably appended to the journal"))
	m.replays, _ = meter.Int64Counter("runlog.idempotent_replays",
		metric.WithDescription("Appends answered from the idempotency index"))
	m.conflicts, _ = meter.Int64Counter("runlog.sequence_conflicts",
		metric.WithDescription("Appends rejected by the expected-previous-sequence precondition"))
	m.replayed, _ = meter.Int64Counter("runlog.replayed_records",
		metric.WithDescription("Records replayed from the journal file at open"))
	return m
}

func (m *metrics) incAppend(ctx context.Context, eventType string) {
	if m.appends == nil {
		return
	}
	m.appends.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
}

func (m *metrics) incReplay(ctx context.Context) {
	if m.replays == nil {
		return
	}
	m.replays.Add(ctx, 1)
}

func (m *metrics) incConflict(ctx context.Context) {
	if m.conflicts == nil {
		return
	}
	m.conflicts.Add(ctx, 1)
}

func (m *metrics) addReplayed(ctx context.Context, n int) {
	if m.replayed == nil || n == 0 {
		return
	}
	m.replayed.Add(ctx, int64(n))
}
