package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return &Tracer{
		tracer: tracenoop.NewTracerProvider().Tracer(""),
	}
}

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("")
	m := &Metrics{}

	m.requestDuration, _ = meter.Float64Histogram("webquery.request.duration") //nolint:errcheck
	m.requestCount, _ = meter.Int64Counter("webquery.request.count")           //nolint:errcheck
	m.rowCount, _ = meter.Int64Histogram("webquery.rows.mapped")               //nolint:errcheck
	m.batchSize, _ = meter.Int64Histogram("webquery.batch.size")               //nolint:errcheck
	m.errorCount, _ = meter.Int64Counter("webquery.error.count")               //nolint:errcheck
	m.countFailures, _ = meter.Int64Counter("webquery.count.failures")         //nolint:errcheck

	return m
}
