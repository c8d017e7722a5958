package observability

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with client span creation methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t.serviceName != "" {
		attrs = append(attrs, attribute.String("peer.service", t.serviceName))
	}
	return t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// StartRead starts a span for reading a collection or a single entity.
func (t *Tracer) StartRead(ctx context.Context, collection string, byKey bool) (context.Context, trace.Span) {
	op := OpRead
	if byKey {
		op = OpReadByKey
	}
	return t.start(ctx, "webquery.read", CollectionAttr(collection), OperationAttr(op))
}

// StartCount starts a span for a count request.
func (t *Tracer) StartCount(ctx context.Context, collection string) (context.Context, trace.Span) {
	return t.start(ctx, "webquery.count", CollectionAttr(collection), OperationAttr(OpCount))
}

// StartWrite starts a span for writing rows.
func (t *Tracer) StartWrite(ctx context.Context, collection, operation string, rows int) (context.Context, trace.Span) {
	return t.start(ctx, "webquery.write",
		CollectionAttr(collection),
		OperationAttr(operation),
		RowCountAttr(rows),
	)
}

// StartBatch starts a span for a batch request.
func (t *Tracer) StartBatch(ctx context.Context, requestCount int) (context.Context, trace.Span) {
	return t.start(ctx, "webquery.batch", OperationAttr(OpBatch), BatchSizeAttr(requestCount))
}

// StartInvoke starts a span for invoking a service operation.
func (t *Tracer) StartInvoke(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.start(ctx, "webquery.invoke", OperationAttr(OpInvoke), attribute.String(AttrOperationName, operation))
}

// SetHTTPStatus sets the HTTP status code on the current span.
func (t *Tracer) SetHTTPStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, statusCode))
	if statusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// SetRequest records the request method and, if enabled, its target.
func (t *Tracer) SetRequest(span trace.Span, method, target string, withTarget bool) {
	attrs := []attribute.KeyValue{attribute.String(AttrHTTPMethod, method)}
	if withTarget && target != "" {
		attrs = append(attrs, TargetAttr(target))
	}
	span.SetAttributes(attrs...)
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
