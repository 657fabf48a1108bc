package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
)

// holderKey marks a context derived inside a CriticalQueue dispatch.
type holderKey struct {
	q *CriticalQueue
}

// holder is the lock ownership carried in a dispatch context. It stays active
// only until the dispatch that took the lock returns.
type holder struct {
	active atomic.Bool
}

// CriticalQueue adds immediate delivery of critical events to a Queue.
// Regular events still go through the wrapped queue.
type CriticalQueue struct {
	inner Queue

	// mu admits one critical dispatch at a time. Nested calls made with a
	// handler's context re-enter without locking.
	mu sync.Mutex

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
}

// NewCriticalQueue wraps inner. Only the logger, metrics, span manager and
// clock options apply.
func NewCriticalQueue(inner Queue, opts ...Option) *CriticalQueue {
	o := buildOptions(opts)
	return &CriticalQueue{
		inner:   inner,
		logger:  observability.EnrichLogger(o.logger, inner.ID(), o.name),
		metrics: o.metrics,
		spans:   o.spans,
		now:     o.now,
	}
}

// Queue returns the wrapped queue.
func (c *CriticalQueue) Queue() Queue {
	return c.inner
}

// EnqueueRegular enqueues a non-critical event on the wrapped queue.
func (c *CriticalQueue) EnqueueRegular(evt event.Event) (bool, error) {
	if evt == nil {
		return false, ErrNilEvent
	}
	if event.IsCritical(evt) {
		return false, ErrCriticalEvent
	}
	return c.inner.EnqueueAt(evt, callerPosition()), nil
}

// HandleCritical delivers evt to its subscribers on the calling goroutine.
// Regular handling is suspended for the duration, so no regular event is
// delivered while a critical one is in flight. A handler may call
// HandleCritical again with the context it received; the nested event is
// delivered immediately. That context must stay on the handler's goroutine:
// a goroutine handed it re-enters without the lock while the outer dispatch
// is still running. Once the outer call returns the context no longer
// grants re-entry.
//
// Returns false once the wrapped queue is shut down.
func (c *CriticalQueue) HandleCritical(ctx context.Context, evt event.Event) (bool, error) {
	if evt == nil {
		return false, ErrNilEvent
	}
	if !event.IsCritical(evt) {
		return false, ErrNotCritical
	}
	if c.inner.State() == StateShutdown {
		return false, nil
	}

	handling := c.inner.EventHandling()
	handling.Suspend()
	defer func() {
		_ = handling.Resume()
	}()

	if h, _ := ctx.Value(holderKey{c}).(*holder); h == nil || !h.active.Load() {
		c.mu.Lock()
		defer c.mu.Unlock()
		h = &holder{}
		h.active.Store(true)
		defer h.active.Store(false)
		ctx = context.WithValue(ctx, holderKey{c}, h)
	}

	evt.Stamp(callerPosition(), c.now())
	name := event.NameOf(evt)

	ctx, span := c.spans.StartDispatchSpan(ctx, c.inner.ID(), name, true)
	elapsed := observability.TimedOperation()
	errs := c.inner.Subscribers().Dispatch(ctx, evt)
	d := elapsed()
	c.metrics.RecordDispatch(ctx, c.inner.ID(), name, true, d, len(errs))
	c.spans.RecordHandlerErrors(span, errs)
	c.spans.EndSpan(span, errors.Join(errs...))
	observability.LogCritical(c.logger, name, observability.Milliseconds(d), len(errs))

	raiseUnhandled(c.inner, c.logger, evt, errs)
	return true, nil
}
