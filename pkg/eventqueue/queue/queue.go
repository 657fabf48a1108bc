package queue

import (
	"log/slog"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
)

// Queue is the surface shared by ManualQueue and BackgroundQueue.
type Queue interface {
	// ID returns the queue's unique identifier.
	ID() string

	// Enqueue adds evt, recording the caller's source position.
	// Returns false if the event was refused. Panics if evt is nil.
	Enqueue(evt event.Event) bool

	// EnqueueAt adds evt with an explicit source position.
	EnqueueAt(evt event.Event, position string) bool

	// RequestShutdown enqueues a new *event.ShutdownRequest.
	RequestShutdown() bool

	// Subscribers returns the queue's subscriber registry.
	Subscribers() *subscriber.Registry

	// EventAdding is the switch that gates Enqueue.
	EventAdding() *Feature

	// EventHandling is the switch that gates delivery.
	EventHandling() *Feature

	// RaiseUnhandledEvents is the switch that gates diagnostic events.
	RaiseUnhandledEvents() *Feature

	// State returns the lifecycle state.
	State() State

	// Len returns the number of pending events.
	Len() int

	// Pending returns the pending events, oldest first.
	Pending() []event.Event
}

// Compile-time interface checks.
var (
	_ Queue = (*ManualQueue)(nil)
	_ Queue = (*BackgroundQueue)(nil)
)

// raiseUnhandled turns handler errors for evt into diagnostic events on q.
// Errors from diagnostic handlers, or raised while the switch is suspended,
// are logged instead.
func raiseUnhandled(q Queue, logger *slog.Logger, evt event.Event, errs []error) {
	if len(errs) == 0 {
		return
	}
	name := event.NameOf(evt)
	position := evt.EnqueuePosition()

	_, diagnostic := evt.(*event.UnhandledError)
	if diagnostic || !q.RaiseUnhandledEvents().IsEnabled() {
		for _, err := range errs {
			observability.LogHandlerError(logger, name, position, err)
		}
		return
	}

	for _, err := range errs {
		if !q.EnqueueAt(event.NewUnhandledError(evt, err), position) {
			observability.LogHandlerError(logger, name, position, err)
		}
	}
}
