package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope of every span and instrument.
const scopeName = "eventqueue"

// SpanManager creates the spans of a queue.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span covering delivery of one event.
	StartDispatchSpan(ctx context.Context, queueID, eventType string, critical bool) (context.Context, trace.Span)

	// StartSnapshotSpan starts a span for saving or restoring a snapshot.
	// op is "snapshot" or "restore".
	StartSnapshotSpan(ctx context.Context, op, queueName, snapshot string) (context.Context, trace.Span)

	// RecordHandlerErrors adds one span event per failed handler.
	RecordHandlerErrors(span trace.Span, errs []error)

	// EndSpan completes a span, marking it failed when err is non-nil.
	EndSpan(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider. Install the provider first:
//
//	otel.SetTracerProvider(tp)
//	spans := observability.NewSpanManager()
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer(scopeName)}
}

// StartDispatchSpan implements SpanManager. Critical deliveries get their
// own span name so they stand out in traces.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, queueID, eventType string, critical bool) (context.Context, trace.Span) {
	name := "eventqueue.dispatch"
	if critical {
		name = "eventqueue.critical"
	}
	return m.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("queue.id", queueID),
			attribute.String("event.type", eventType),
			attribute.Bool("event.critical", critical),
		),
	)
}

// StartSnapshotSpan implements SpanManager.
func (m *otelSpanManager) StartSnapshotSpan(ctx context.Context, op, queueName, snapshot string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventqueue."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("queue.name", queueName),
			attribute.String("snapshot.name", snapshot),
		),
	)
}

// RecordHandlerErrors implements SpanManager.
func (m *otelSpanManager) RecordHandlerErrors(span trace.Span, errs []error) {
	if span == nil || !span.IsRecording() {
		return
	}
	for i, err := range errs {
		span.AddEvent("handler.error", trace.WithAttributes(
			attribute.Int("handler.index", i),
			attribute.String("error.message", err.Error()),
		))
	}
	span.SetAttributes(attribute.Int("handler.errors", len(errs)))
}

// EndSpan implements SpanManager.
func (m *otelSpanManager) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
