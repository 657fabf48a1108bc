// Package subscriber maps event types to the handlers interested in them.
//
// Handlers are registered per (handler, event type) pair. Matching is
// covariant: a handler registered for an interface type receives every event
// whose runtime type implements it, and a handler registered for
// event.Event receives everything.
//
// Registrations are strong by default. AddWeak and SubscribeWeak keep only a
// weak pointer to the handler; once the handler becomes unreachable the entry
// is pruned on the next dispatch.
package subscriber

import (
	"context"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Handler receives dispatched events.
// Implementations must be comparable (typically a pointer) so that the
// registry can identify them for Remove and duplicate detection.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.Event) error
}

// FuncHandler adapts a typed function into a Handler.
// Events that are not a T are ignored.
type FuncHandler[T event.Event] struct {
	fn func(ctx context.Context, evt T) error
}

// Func wraps fn. The returned pointer is the handler's identity; keep it to
// remove the registration later.
func Func[T event.Event](fn func(ctx context.Context, evt T) error) *FuncHandler[T] {
	return &FuncHandler[T]{fn: fn}
}

// HandleEvent implements Handler.
func (h *FuncHandler[T]) HandleEvent(ctx context.Context, evt event.Event) error {
	typed, ok := evt.(T)
	if !ok {
		return nil
	}
	return h.fn(ctx, typed)
}
