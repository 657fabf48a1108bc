package eventqueue

import (
	"log/slog"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/archive"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/queue"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/wire"
)

// hubOptions holds overrides for what the config would build.
type hubOptions struct {
	logger    *slog.Logger
	types     *wire.Types
	store     archive.Store
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	queueOpts []queue.Option
}

// Option configures a Hub.
type Option func(*hubOptions)

// WithLogger replaces the logger built from config.Log.
func WithLogger(logger *slog.Logger) Option {
	return func(o *hubOptions) {
		o.logger = logger
	}
}

// WithTypes sets the event types that snapshots can hold.
// Default: wire.NewTypes(), which only knows the built-in events.
func WithTypes(types *wire.Types) Option {
	return func(o *hubOptions) {
		o.types = types
	}
}

// WithStore replaces the archive built from config.Archive. The hub does
// not close a store passed this way.
func WithStore(store archive.Store) Option {
	return func(o *hubOptions) {
		o.store = store
	}
}

// WithMetrics replaces the recorder selected by config.Metrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *hubOptions) {
		o.metrics = m
	}
}

// WithSpanManager replaces the span manager selected by config.Tracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(o *hubOptions) {
		o.spans = s
	}
}

// WithQueueOptions passes extra options to the queue, e.g. hooks.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(o *hubOptions) {
		o.queueOpts = append(o.queueOpts, opts...)
	}
}
