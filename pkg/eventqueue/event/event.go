package event

import (
	"reflect"
	"sync/atomic"
	"time"
)

// Event is the unit of data flowing through a queue.
// Implementations embed Base; only pointer types satisfy the interface.
type Event interface {
	// EnqueuePosition returns the source position recorded by the last
	// accepted enqueue, or "" if the event was never enqueued.
	EnqueuePosition() string

	// EnqueuedAt returns the time of the last accepted enqueue.
	EnqueuedAt() time.Time

	// Stamp records enqueue provenance. Queues call it on every accepted
	// enqueue and stream decoders call it when restoring an event.
	Stamp(position string, at time.Time)
}

// provenance is swapped atomically so handlers can read it while another
// goroutine re-enqueues the event.
type provenance struct {
	position string
	at       time.Time
}

// Base carries the enqueue provenance shared by all events.
type Base struct {
	stamp atomic.Pointer[provenance]
}

// EnqueuePosition implements Event.
func (b *Base) EnqueuePosition() string {
	if p := b.stamp.Load(); p != nil {
		return p.position
	}
	return ""
}

// EnqueuedAt implements Event.
func (b *Base) EnqueuedAt() time.Time {
	if p := b.stamp.Load(); p != nil {
		return p.at
	}
	return time.Time{}
}

// Stamp implements Event.
func (b *Base) Stamp(position string, at time.Time) {
	b.stamp.Store(&provenance{position: position, at: at})
}

// CriticalEvent is implemented by events that must be delivered
// immediately, ahead of everything pending in the regular queue.
type CriticalEvent interface {
	Event
	IsCritical() bool
}

// CriticalBase tags the embedding event as critical.
type CriticalBase struct {
	Base
}

// IsCritical implements CriticalEvent.
func (*CriticalBase) IsCritical() bool {
	return true
}

// IsCritical reports whether evt is tagged critical.
func IsCritical(evt Event) bool {
	c, ok := evt.(CriticalEvent)
	return ok && c.IsCritical()
}

// TypeName returns the fully qualified name of an event type, e.g.
// "github.com/acme/app/events.FileSaved" for *events.FileSaved.
// Pointer types are named after their element type.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// NameOf returns the fully qualified type name of evt.
func NameOf(evt Event) string {
	if evt == nil {
		return ""
	}
	return TypeName(reflect.TypeOf(evt))
}

// TypeOf returns the reflect.Type for T. It is the key handlers are
// registered under.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
