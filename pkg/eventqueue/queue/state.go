package queue

import (
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// State is the lifecycle state of a queue. Transitions only move forward.
type State int32

const (
	// StateOpen accepts and delivers events.
	StateOpen State = iota

	// StateShuttingDownEnqueued has a shutting-down sentinel pending.
	StateShuttingDownEnqueued

	// StateHandlingRemainingEvents refuses new events and drains the rest.
	StateHandlingRemainingEvents

	// StateShutdown is terminal.
	StateShutdown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateShuttingDownEnqueued:
		return "shutting_down_enqueued"
	case StateHandlingRemainingEvents:
		return "handling_remaining_events"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Decision tells the core what to do with a popped event.
type Decision int

const (
	// Handle dispatches the event.
	Handle Decision = iota

	// SkipAsHandled drops the event as already satisfied.
	SkipAsHandled

	// SkipAsUnable drops the event and logs it as undeliverable.
	SkipAsUnable
)

// Hooks extend the built-in queue behavior. Each hook runs after the
// built-in logic for the same step and only sees events that step let
// through. BeforeAdding runs with the queue lock held and must not call
// back into the queue. Lifecycle sentinels are never passed to
// BeforeHandling.
type Hooks struct {
	// BeforeAdding can veto an enqueue.
	BeforeAdding func(evt event.Event) bool

	// AfterAdding runs after an event was accepted.
	AfterAdding func(evt event.Event)

	// BeforeHandling decides whether a popped event is dispatched.
	BeforeHandling func(evt event.Event) Decision

	// AfterHandling runs after an event was dispatched.
	AfterHandling func(evt event.Event)
}
