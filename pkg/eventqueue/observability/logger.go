// Package observability provides logging, metrics and tracing hooks for
// event queues.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds queue context to a logger.
// Returns a new logger with queue_id and queue_name fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, q.ID(), "ui")
//	enriched.Info("draining") // includes queue_id, queue_name
func EnrichLogger(logger *slog.Logger, queueID, name string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{slog.String("queue_id", queueID)}
	if name != "" {
		attrs = append(attrs, slog.String("queue_name", name))
	}
	return logger.With(attrs...)
}

// LogStateChange logs a lifecycle transition.
func LogStateChange(logger *slog.Logger, from, to string) {
	if logger == nil {
		return
	}
	logger.Info("queue state changed",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogDropped logs an enqueue attempt that was refused.
func LogDropped(logger *slog.Logger, eventType, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("event not enqueued",
		slog.String("event_type", eventType),
		slog.String("reason", reason),
	)
}

// LogHandlerError logs a handler failure that was not re-raised as a
// diagnostic event.
func LogHandlerError(logger *slog.Logger, eventType, position string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event handler failed",
		slog.String("event_type", eventType),
		slog.String("enqueued_at", position),
		slog.String("error", err.Error()),
	)
}

// LogCritical logs the completion of a critical dispatch.
func LogCritical(logger *slog.Logger, eventType string, durationMs float64, handlerErrors int) {
	if logger == nil {
		return
	}
	logger.Debug("critical event handled",
		slog.String("event_type", eventType),
		slog.Float64("duration_ms", durationMs),
		slog.Int("handler_errors", handlerErrors),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
