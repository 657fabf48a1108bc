package queue

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
)

// Option configures a queue.
type Option func(*options)

type options struct {
	name              string
	logger            *slog.Logger
	metrics           observability.MetricsRecorder
	spans             observability.SpanManager
	storage           Storage
	hooks             Hooks
	raiseUnhandled    bool
	addingSuspended   bool
	handlingSuspended bool
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		logger:         slog.New(slog.DiscardHandler),
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
		raiseUnhandled: true,
		now:            time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.storage == nil {
		o.storage = NewFIFO(0)
	}
	return o
}

// WithName sets a human-readable queue name used in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. Defaults to a logger that discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSpanManager sets the tracing span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(o *options) {
		if s != nil {
			o.spans = s
		}
	}
}

// WithStorage replaces the default unbounded FIFO.
func WithStorage(s Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithCapacity bounds the default FIFO. Enqueue refuses events beyond it.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.storage = NewFIFO(n)
	}
}

// WithHooks installs extension hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithRaiseUnhandledEvents controls whether handler errors are queued as
// *event.UnhandledError. Enabled by default.
func WithRaiseUnhandledEvents(enabled bool) Option {
	return func(o *options) {
		o.raiseUnhandled = enabled
	}
}

// WithAddingSuspended starts the queue with EventAdding suspended once.
func WithAddingSuspended() Option {
	return func(o *options) {
		o.addingSuspended = true
	}
}

// WithHandlingSuspended starts the queue with EventHandling suspended once.
func WithHandlingSuspended() Option {
	return func(o *options) {
		o.handlingSuspended = true
	}
}

// WithClock overrides the clock used for enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
