package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the client metric instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	rowCount        metric.Int64Histogram
	batchSize       metric.Int64Histogram
	errorCount      metric.Int64Counter
	countFailures   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Instrument creation only fails on invalid parameters; fall back to
	// unnamed options so partial metrics still work.
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"webquery.request.duration",
		metric.WithDescription("Duration of remote requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.requestDuration, _ = meter.Float64Histogram("webquery.request.duration")
	}

	m.requestCount, err = meter.Int64Counter(
		"webquery.request.count",
		metric.WithDescription("Total number of remote requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.requestCount, _ = meter.Int64Counter("webquery.request.count")
	}

	m.rowCount, err = meter.Int64Histogram(
		"webquery.rows.mapped",
		metric.WithDescription("Number of rows mapped from read responses"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		m.rowCount, _ = meter.Int64Histogram("webquery.rows.mapped")
	}

	m.batchSize, err = meter.Int64Histogram(
		"webquery.batch.size",
		metric.WithDescription("Number of sub-requests in a batch"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.batchSize, _ = meter.Int64Histogram("webquery.batch.size")
	}

	m.errorCount, err = meter.Int64Counter(
		"webquery.error.count",
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("webquery.error.count")
	}

	m.countFailures, err = meter.Int64Counter(
		"webquery.count.failures",
		metric.WithDescription("Count requests that failed and were reported as unknown"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.countFailures, _ = meter.Int64Counter("webquery.count.failures")
	}

	return m
}

// RecordRequest records metrics for a completed remote request.
func (m *Metrics) RecordRequest(ctx context.Context, collection, operation string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		CollectionAttr(collection),
		OperationAttr(operation),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCount.Add(ctx, 1, attrs)
}

// RecordRows records the number of rows mapped from a read.
func (m *Metrics) RecordRows(ctx context.Context, collection string, count int) {
	m.rowCount.Record(ctx, int64(count), metric.WithAttributes(CollectionAttr(collection)))
}

// RecordBatchSize records the size of a batch request.
func (m *Metrics) RecordBatchSize(ctx context.Context, size int) {
	m.batchSize.Record(ctx, int64(size))
}

// RecordError records a failed operation.
func (m *Metrics) RecordError(ctx context.Context, collection, operation, errorType string) {
	attrs := metric.WithAttributes(
		CollectionAttr(collection),
		OperationAttr(operation),
		ErrorTypeAttr(errorType),
	)
	m.errorCount.Add(ctx, 1, attrs)
}

// RecordCountFailure records a count request whose failure was tolerated.
func (m *Metrics) RecordCountFailure(ctx context.Context, collection string) {
	m.countFailures.Add(ctx, 1, metric.WithAttributes(CollectionAttr(collection)))
}
