package queue

import (
	"context"
)

// ManualQueue is a queue whose owner pulls events with HandleNext.
type ManualQueue struct {
	*Core
}

// NewManualQueue creates a pull-driven queue.
func NewManualQueue(opts ...Option) *ManualQueue {
	return &ManualQueue{Core: newCore(buildOptions(opts))}
}

// HandleNext pops the oldest pending event and delivers it to its
// subscribers. Returns false if handling is suspended, nothing is pending,
// or the event was skipped, e.g. a shutdown request superseded by a
// shutdown already under way.
// Must not be called from within a handler of the same queue.
func (q *ManualQueue) HandleNext(ctx context.Context) bool {
	return q.handleNext(ctx)
}

// Drain handles events until none are left or handling is suspended, and
// reports how many were delivered.
func (q *ManualQueue) Drain(ctx context.Context) int {
	n := 0
	for {
		if q.handleNext(ctx) {
			n++
			continue
		}
		if !q.hasPendingWork() {
			return n
		}
	}
}
