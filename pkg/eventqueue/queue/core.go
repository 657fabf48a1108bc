package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
)

// Feature names.
const (
	FeatureEventAdding          = "event_adding"
	FeatureEventHandling        = "event_handling"
	FeatureRaiseUnhandledEvents = "raise_unhandled_events"
)

// Core holds pending events, the lifecycle state and the feature switches.
// It is embedded by the schedulers and is not used directly.
//
// mu guards storage, state and the switches. dispatchMu serializes
// pop-and-deliver so at most one regular event is in flight.
type Core struct {
	id   string
	name string

	mu                  sync.Mutex
	storage             Storage
	state               State
	requestPending      bool
	shuttingDownPending bool

	adding   *Feature
	handling *Feature
	raising  *Feature

	dispatchMu  sync.Mutex
	subscribers *subscriber.Registry
	hooks       Hooks

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
}

type transition struct {
	from, to State
}

func newCore(o options) *Core {
	c := &Core{
		id:          uuid.New().String(),
		name:        o.name,
		storage:     o.storage,
		subscribers: subscriber.NewRegistry(),
		hooks:       o.hooks,
		metrics:     o.metrics,
		spans:       o.spans,
		now:         o.now,
	}
	c.logger = observability.EnrichLogger(o.logger, c.id, o.name)
	c.adding = newFeature(FeatureEventAdding, &c.mu)
	c.handling = newFeature(FeatureEventHandling, &c.mu)
	c.raising = newFeature(FeatureRaiseUnhandledEvents, &c.mu)

	if o.addingSuspended {
		c.adding.Suspend()
	}
	if o.handlingSuspended {
		c.handling.Suspend()
	}
	if !o.raiseUnhandled {
		c.raising.Suspend()
	}
	return c
}

// ID returns the queue's unique identifier.
func (c *Core) ID() string {
	return c.id
}

// Name returns the queue name given with WithName.
func (c *Core) Name() string {
	return c.name
}

// Subscribers returns the subscriber registry.
func (c *Core) Subscribers() *subscriber.Registry {
	return c.subscribers
}

// EventAdding returns the adding switch.
func (c *Core) EventAdding() *Feature {
	return c.adding
}

// EventHandling returns the handling switch.
func (c *Core) EventHandling() *Feature {
	return c.handling
}

// RaiseUnhandledEvents returns the switch for diagnostic events.
func (c *Core) RaiseUnhandledEvents() *Feature {
	return c.raising
}

// State returns the lifecycle state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Len returns the number of pending events.
func (c *Core) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storage.Len()
}

// Pending returns the pending events, oldest first.
func (c *Core) Pending() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storage.Snapshot()
}

// Enqueue adds evt and records the caller's file and line as its position.
// Returns false when the event is refused: adding is suspended, the queue is
// draining or shut down, the same instance is already pending, or a
// duplicate shutdown sentinel is outstanding. Panics if evt is nil.
func (c *Core) Enqueue(evt event.Event) bool {
	if evt == nil {
		panic(ErrNilEvent)
	}
	return c.enqueue(evt, callerPosition(), false)
}

// EnqueueAt is Enqueue with an explicit source position.
func (c *Core) EnqueueAt(evt event.Event, position string) bool {
	if evt == nil {
		panic(ErrNilEvent)
	}
	return c.enqueue(evt, position, false)
}

// RequestShutdown enqueues a fresh *event.ShutdownRequest.
func (c *Core) RequestShutdown() bool {
	return c.enqueue(event.NewShutdownRequest(), callerPosition(), false)
}

// enqueue admits evt. internal is set for sentinels the core itself emits;
// they bypass the adding switch and the draining check.
func (c *Core) enqueue(evt event.Event, position string, internal bool) bool {
	name := event.NameOf(evt)

	c.mu.Lock()
	reason := c.admitLocked(evt, internal)
	var tr *transition
	if reason == "" {
		if c.storage.Push(evt) {
			evt.Stamp(position, c.now())
			tr = c.trackAddedLocked(evt)
		} else {
			reason = "storage full"
		}
	}
	c.mu.Unlock()

	c.metrics.RecordEnqueue(context.Background(), c.id, name, reason == "")
	if reason != "" {
		observability.LogDropped(c.logger, name, reason)
		return false
	}
	c.report(tr)

	if c.hooks.AfterAdding != nil {
		c.hooks.AfterAdding(evt)
	}
	return true
}

// admitLocked returns why evt must be refused, or "" to accept it.
func (c *Core) admitLocked(evt event.Event, internal bool) string {
	if !internal && !c.adding.enabledLocked() {
		return "adding suspended"
	}
	if c.state == StateShutdown {
		return "queue shut down"
	}
	if !internal && c.state >= StateHandlingRemainingEvents {
		return "queue draining"
	}
	if c.storage.Contains(evt) {
		return "already pending"
	}

	switch evt.(type) {
	case *event.ShutdownRequest:
		if c.requestPending {
			return "shutdown already requested"
		}
	case *event.ShuttingDown:
		if c.shuttingDownPending || c.state >= StateShuttingDownEnqueued {
			return "shutdown already in progress"
		}
	case *event.ShutDown:
		if !internal {
			return "shut down sentinel is reserved"
		}
	}

	if c.hooks.BeforeAdding != nil && !c.hooks.BeforeAdding(evt) {
		return "rejected by hook"
	}
	return ""
}

func (c *Core) trackAddedLocked(evt event.Event) *transition {
	switch evt.(type) {
	case *event.ShutdownRequest:
		c.requestPending = true
	case *event.ShuttingDown:
		c.shuttingDownPending = true
		return c.advanceLocked(StateShuttingDownEnqueued)
	}
	return nil
}

func (c *Core) advanceLocked(to State) *transition {
	if to <= c.state {
		return nil
	}
	tr := &transition{from: c.state, to: to}
	c.state = to
	return tr
}

func (c *Core) report(tr *transition) {
	if tr == nil {
		return
	}
	observability.LogStateChange(c.logger, tr.from.String(), tr.to.String())
	c.metrics.RecordStateChange(context.Background(), c.id, tr.to.String())
}

// handleNext pops and delivers one event. Returns false if handling is
// suspended, nothing is pending, or the popped event was skipped.
func (c *Core) handleNext(ctx context.Context) bool {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if !c.handling.enabledLocked() {
		c.mu.Unlock()
		return false
	}
	evt, ok := c.storage.Pop()
	c.mu.Unlock()
	if !ok {
		return false
	}

	name := event.NameOf(evt)
	switch c.beforeHandling(evt) {
	case SkipAsHandled:
		return false
	case SkipAsUnable:
		observability.LogDropped(c.logger, name, "unable to handle")
		return false
	}

	ctx, span := c.spans.StartDispatchSpan(ctx, c.id, name, false)
	elapsed := observability.TimedOperation()
	errs := c.subscribers.Dispatch(ctx, evt)
	c.metrics.RecordDispatch(ctx, c.id, name, false, elapsed(), len(errs))
	c.spans.RecordHandlerErrors(span, errs)
	c.spans.EndSpan(span, errors.Join(errs...))

	c.afterHandling(evt)
	raiseUnhandled(c, c.logger, evt, errs)
	return true
}

func (c *Core) beforeHandling(evt event.Event) Decision {
	if _, ok := evt.(*event.ShutdownRequest); ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.shuttingDownPending || c.state != StateOpen {
			c.requestPending = false
			c.logger.Debug("shutdown request superseded")
			return SkipAsHandled
		}
		return Handle
	}
	if event.IsSentinel(evt) || c.hooks.BeforeHandling == nil {
		return Handle
	}
	return c.hooks.BeforeHandling(evt)
}

func (c *Core) afterHandling(evt event.Event) {
	switch e := evt.(type) {
	case *event.ShutdownRequest:
		c.mu.Lock()
		c.requestPending = false
		c.mu.Unlock()
		if e.Cancelled() {
			c.logger.Info("shutdown request cancelled by handler")
			break
		}
		c.enqueue(event.NewShuttingDown(), e.EnqueuePosition(), true)

	case *event.ShuttingDown:
		c.adding.Suspend()
		c.mu.Lock()
		c.shuttingDownPending = false
		tr := c.advanceLocked(StateHandlingRemainingEvents)
		c.mu.Unlock()
		c.report(tr)
		c.enqueue(event.NewShutDown(), e.EnqueuePosition(), true)

	case *event.ShutDown:
		c.mu.Lock()
		remaining := c.storage.Len()
		c.mu.Unlock()
		if remaining != 0 {
			panic(&InvariantError{
				Op:      "shut down",
				Message: fmt.Sprintf("%d events still pending", remaining),
			})
		}
		c.subscribers.DisableAndClear()
		c.mu.Lock()
		tr := c.advanceLocked(StateShutdown)
		c.mu.Unlock()
		c.report(tr)
	}

	if c.hooks.AfterHandling != nil {
		c.hooks.AfterHandling(evt)
	}
}

// hasPendingWork reports whether handling is enabled and events remain.
// Drain loops use it to carry on past skipped events.
func (c *Core) hasPendingWork() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handling.enabledLocked() && c.storage.Len() > 0
}
