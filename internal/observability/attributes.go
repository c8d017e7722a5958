// Package observability provides OpenTelemetry-based instrumentation for
// requests sent to remote web services.
//
// All observability features are opt-in. When not configured, no-op
// implementations are used.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-webquery"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-webquery"
)

// Semantic attribute keys.
const (
	AttrCollection = "webquery.collection"
	AttrOperation  = "webquery.operation"
	AttrDialect    = "webquery.dialect"
	AttrTarget     = "webquery.target"

	AttrOperationName = "webquery.operation.name"

	AttrRowCount   = "webquery.row_count"
	AttrTotalCount = "webquery.total_count"
	AttrHasMore    = "webquery.has_more"

	AttrBatchSize     = "webquery.batch.size"
	AttrChangesetSize = "webquery.changeset.size"

	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	AttrErrorType = "webquery.error.type"

	// AttrRemoteTimingPrefix prefixes attributes carrying remote Server-Timing
	// durations in milliseconds.
	AttrRemoteTimingPrefix = "webquery.remote_timing."
)

// Operation types for the webquery.operation attribute.
const (
	OpRead      = "read"
	OpReadByKey = "read_by_key"
	OpCount     = "count"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpBatch     = "batch"
	OpInvoke    = "invoke"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldCollection = "collection"
	LogFieldOperation  = "operation"
	LogFieldTraceID    = "trace_id"
	LogFieldSpanID     = "span_id"
	LogFieldURL        = "url"
	LogFieldDuration   = "duration_ms"
	LogFieldRows       = "rows"
	LogFieldError      = "error"
)

// CollectionAttr creates an attribute for the collection path.
func CollectionAttr(name string) attribute.KeyValue {
	return attribute.String(AttrCollection, name)
}

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// DialectAttr creates an attribute for the protocol dialect.
func DialectAttr(dialect string) attribute.KeyValue {
	return attribute.String(AttrDialect, dialect)
}

// TargetAttr creates an attribute for the request target.
func TargetAttr(target string) attribute.KeyValue {
	return attribute.String(AttrTarget, target)
}

// RowCountAttr creates an attribute for the number of mapped rows.
func RowCountAttr(count int) attribute.KeyValue {
	return attribute.Int(AttrRowCount, count)
}

// BatchSizeAttr creates an attribute for the batch size.
func BatchSizeAttr(size int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, size)
}

// ErrorTypeAttr creates an attribute for the error class.
func ErrorTypeAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorType, kind)
}
