package queue

import (
	"context"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// BackgroundQueue drains itself on a dedicated goroutine. The worker wakes
// whenever an event is accepted while handling is enabled, or when handling
// is resumed, and exits once the queue is shut down.
type BackgroundQueue struct {
	*Core

	ctx  context.Context
	wake chan struct{}
	done chan struct{}
}

// NewBackgroundQueue creates a self-draining queue and starts its worker.
// ctx is passed to handlers; cancelling it does not stop the worker, use
// Shutdown for that.
func NewBackgroundQueue(ctx context.Context, opts ...Option) *BackgroundQueue {
	o := buildOptions(opts)
	q := &BackgroundQueue{
		ctx:  context.WithoutCancel(ctx),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	userAfterAdding := o.hooks.AfterAdding
	o.hooks.AfterAdding = func(evt event.Event) {
		if userAfterAdding != nil {
			userAfterAdding(evt)
		}
		if q.handling.IsEnabled() {
			q.signal()
		}
	}

	q.Core = newCore(o)
	q.handling.watch(q.park, q.signal)

	go q.run()
	return q
}

// signal wakes the worker. Never blocks.
func (q *BackgroundQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// park discards a pending wake-up.
func (q *BackgroundQueue) park() {
	select {
	case <-q.wake:
	default:
	}
}

func (q *BackgroundQueue) run() {
	defer close(q.done)
	q.logger.Debug("background worker started")

	for range q.wake {
		q.drain()
		if q.State() == StateShutdown {
			q.logger.Debug("background worker stopped")
			return
		}
	}
}

func (q *BackgroundQueue) drain() {
	for {
		if q.handleNext(q.ctx) {
			continue
		}
		// A skipped event returns false while more may be pending.
		if q.hasPendingWork() {
			continue
		}
		return
	}
}

// Done is closed when the worker has exited after shutdown.
func (q *BackgroundQueue) Done() <-chan struct{} {
	return q.done
}

// Wait blocks until the worker has exited or ctx is done.
func (q *BackgroundQueue) Wait(ctx context.Context) error {
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown starts the shutdown sequence without a veto step and waits for
// the worker to finish the remaining events. Concurrent calls are safe: the
// core admits a single *event.ShuttingDown per queue lifetime.
func (q *BackgroundQueue) Shutdown(ctx context.Context) error {
	if q.State() == StateOpen {
		q.enqueue(event.NewShuttingDown(), callerPosition(), true)
	}
	return q.Wait(ctx)
}
