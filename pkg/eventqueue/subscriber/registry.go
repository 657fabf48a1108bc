package subscriber

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"weak"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Registry holds handler registrations and performs dispatch.
// It is safe for concurrent use. Handlers run outside the registry lock, so
// they may call Add, Remove or Dispatch themselves.
type Registry struct {
	mu       sync.Mutex
	entries  []*entry
	disabled bool
}

// entry is one (handler, event type) registration.
type entry struct {
	eventType reflect.Type
	weak      bool

	// resolve returns the live handler, or nil once a weak target is gone.
	resolve func() Handler

	// same reports whether h identifies this entry's handler.
	same func(h any) bool

	// removed is only touched under Registry.mu; dispatch snapshots read
	// it again before invoking.
	removed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers h for eventType with strong ownership.
// Returns false if the pair is already registered, h is nil or not
// comparable, or the registry has been disabled.
func (r *Registry) Add(h Handler, eventType reflect.Type) bool {
	if h == nil || eventType == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}
	return r.add(&entry{
		eventType: eventType,
		resolve:   func() Handler { return h },
		same:      func(o any) bool { return o == any(h) },
	}, h)
}

// AddWeak registers h for eventType without keeping h alive. When h becomes
// unreachable and is collected, the entry is pruned on the next dispatch.
func AddWeak[H any, PH interface {
	*H
	Handler
}](r *Registry, h PH, eventType reflect.Type) bool {
	if h == nil || eventType == nil {
		return false
	}
	wp := weak.Make((*H)(h))
	return r.add(&entry{
		eventType: eventType,
		weak:      true,
		resolve: func() Handler {
			p := wp.Value()
			if p == nil {
				return nil
			}
			return PH(p)
		},
		same: func(o any) bool {
			p, ok := o.(PH)
			return ok && weak.Make((*H)(p)) == wp
		},
	}, h)
}

// Subscribe registers h for events of type T with strong ownership.
func Subscribe[T event.Event](r *Registry, h Handler) bool {
	return r.Add(h, event.TypeOf[T]())
}

// SubscribeWeak registers h for events of type T with weak ownership.
func SubscribeWeak[T event.Event, H any, PH interface {
	*H
	Handler
}](r *Registry, h PH) bool {
	return AddWeak[H, PH](r, h, event.TypeOf[T]())
}

func (r *Registry) add(e *entry, key any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return false
	}
	if r.indexLocked(key, e.eventType) >= 0 {
		return false
	}
	r.entries = append(r.entries, e)
	return true
}

// indexLocked finds the live entry for (key, eventType), or -1.
func (r *Registry) indexLocked(key any, eventType reflect.Type) int {
	for i, e := range r.entries {
		if e.eventType == eventType && e.same(key) {
			return i
		}
	}
	return -1
}

// Remove deletes the registration of h for eventType.
// Other registrations of h are kept.
func (r *Registry) Remove(h any, eventType reflect.Type) bool {
	if h == nil || eventType == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return false
	}
	i := r.indexLocked(h, eventType)
	if i < 0 {
		return false
	}
	r.entries[i].removed = true
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return true
}

// Unsubscribe removes the registration of h for events of type T.
func Unsubscribe[T event.Event](r *Registry, h any) bool {
	return r.Remove(h, event.TypeOf[T]())
}

// Clear removes all registrations. Ignored once disabled.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return
	}
	r.clearLocked()
}

// DisableAndClear removes all registrations and makes every later Add,
// Remove and Clear a no-op.
func (r *Registry) DisableAndClear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disabled = true
	r.clearLocked()
}

func (r *Registry) clearLocked() {
	for _, e := range r.entries {
		e.removed = true
	}
	r.entries = nil
}

// Disabled reports whether DisableAndClear has been called.
func (r *Registry) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Len returns the number of registrations, including weak entries whose
// target has been collected but not yet pruned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// target is a resolved handler captured for one dispatch.
type target struct {
	entry   *entry
	handler Handler
}

// Dispatch delivers evt to every matching handler in registration order and
// returns the errors they produced. A failing or panicking handler never
// stops delivery to the rest.
func (r *Registry) Dispatch(ctx context.Context, evt event.Event) []error {
	if evt == nil {
		return nil
	}
	targets := r.match(reflect.TypeOf(evt))

	var errs []error
	for _, t := range targets {
		if r.isRemoved(t.entry) {
			continue
		}
		if err := invoke(ctx, t.handler, evt); err != nil {
			errs = append(errs, &HandlerError{
				Handler:   fmt.Sprintf("%T", t.handler),
				EventType: event.NameOf(evt),
				Err:       err,
			})
		}
	}
	return errs
}

// match resolves the handlers for evtType and prunes collected weak
// entries in place, keeping registration order.
func (r *Registry) match(evtType reflect.Type) []target {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []target
	live := r.entries[:0]
	for _, e := range r.entries {
		h := e.resolve()
		if h == nil {
			e.removed = true
			continue
		}
		live = append(live, e)
		if matches(e.eventType, evtType) {
			targets = append(targets, target{entry: e, handler: h})
		}
	}
	for i := len(live); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = live
	return targets
}

func (r *Registry) isRemoved(e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.removed
}

// matches reports whether a handler declared for declared receives events of
// runtime type actual.
func matches(declared, actual reflect.Type) bool {
	if declared == actual {
		return true
	}
	return declared.Kind() == reflect.Interface && actual.Implements(declared)
}

// invoke calls h, converting a panic into a *PanicError.
func invoke(ctx context.Context, h Handler, evt event.Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: string(debug.Stack())}
		}
	}()
	return h.HandleEvent(ctx, evt)
}
