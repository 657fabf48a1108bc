package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records queue metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEnqueue records an enqueue attempt and whether it was accepted.
	RecordEnqueue(ctx context.Context, queueID, eventType string, accepted bool)

	// RecordDispatch records one dispatch with its duration and the number
	// of handlers that failed. critical marks the synchronous path.
	RecordDispatch(ctx context.Context, queueID, eventType string, critical bool, duration time.Duration, handlerErrors int)

	// RecordStateChange records a lifecycle transition.
	RecordStateChange(ctx context.Context, queueID, state string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	enqueued        metric.Int64Counter
	refused         metric.Int64Counter
	dispatched      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	handlerErrors   metric.Int64Counter
	stateChanges    metric.Int64Counter
}

// newOtelMetrics creates the queue instruments on meter.
func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	enqueued, err := meter.Int64Counter("eventqueue.events.enqueued",
		metric.WithDescription("Number of events accepted by a queue"),
	)
	if err != nil {
		return nil, err
	}

	refused, err := meter.Int64Counter("eventqueue.events.refused",
		metric.WithDescription("Number of enqueue attempts that were refused"),
	)
	if err != nil {
		return nil, err
	}

	dispatched, err := meter.Int64Counter("eventqueue.events.dispatched",
		metric.WithDescription("Number of events delivered to subscribers"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("eventqueue.dispatch.latency_ms",
		metric.WithDescription("Time spent delivering one event to all subscribers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("eventqueue.handler.errors",
		metric.WithDescription("Number of failed handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	stateChanges, err := meter.Int64Counter("eventqueue.state.changes",
		metric.WithDescription("Number of queue lifecycle transitions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		enqueued:        enqueued,
		refused:         refused,
		dispatched:      dispatched,
		dispatchLatency: dispatchLatency,
		handlerErrors:   handlerErrors,
		stateChanges:    stateChanges,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider at the time of the call. If the instruments cannot be
// created, returns a no-op recorder.
//
//	otel.SetMeterProvider(mp)
//	metrics := observability.NewMetricsRecorder()
func NewMetricsRecorder() MetricsRecorder {
	m, err := newOtelMetrics(otel.Meter(scopeName))
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEnqueue records an enqueue attempt.
func (m *otelMetrics) RecordEnqueue(ctx context.Context, queueID, eventType string, accepted bool) {
	attrs := metric.WithAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("event_type", eventType),
	)
	if accepted {
		m.enqueued.Add(ctx, 1, attrs)
	} else {
		m.refused.Add(ctx, 1, attrs)
	}
}

// RecordDispatch records a dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, queueID, eventType string, critical bool, duration time.Duration, handlerErrors int) {
	attrs := metric.WithAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("event_type", eventType),
		attribute.Bool("critical", critical),
	)
	m.dispatched.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, Milliseconds(duration), attrs)
	if handlerErrors > 0 {
		m.handlerErrors.Add(ctx, int64(handlerErrors), attrs)
	}
}

// RecordStateChange records a lifecycle transition.
func (m *otelMetrics) RecordStateChange(ctx context.Context, queueID, state string) {
	m.stateChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("state", state),
	))
}
