package queue

import (
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Storage holds pending events in FIFO order.
// The owning queue serializes all calls; implementations need no locking.
type Storage interface {
	// Push appends evt. Returns false if the storage cannot take it.
	Push(evt event.Event) bool

	// Pop removes and returns the oldest event.
	Pop() (event.Event, bool)

	// Contains reports whether this exact instance is pending.
	Contains(evt event.Event) bool

	// Len returns the number of pending events.
	Len() int

	// Snapshot returns the pending events, oldest first.
	Snapshot() []event.Event
}

// FIFO is the default in-memory Storage.
type FIFO struct {
	items    []event.Event
	head     int
	pending  map[event.Event]int
	capacity int
}

// Compile-time interface check.
var _ Storage = (*FIFO)(nil)

// NewFIFO creates a FIFO. A capacity of 0 means unbounded.
func NewFIFO(capacity int) *FIFO {
	if capacity < 0 {
		capacity = 0
	}
	return &FIFO{
		pending:  make(map[event.Event]int),
		capacity: capacity,
	}
}

// Push implements Storage.
func (s *FIFO) Push(evt event.Event) bool {
	if s.capacity > 0 && s.Len() >= s.capacity {
		return false
	}
	s.items = append(s.items, evt)
	s.pending[evt]++
	return true
}

// Pop implements Storage.
func (s *FIFO) Pop() (event.Event, bool) {
	if s.head >= len(s.items) {
		return nil, false
	}
	evt := s.items[s.head]
	s.items[s.head] = nil
	s.head++

	if n := s.pending[evt]; n <= 1 {
		delete(s.pending, evt)
	} else {
		s.pending[evt] = n - 1
	}

	// Reclaim the consumed prefix once it dominates the slice.
	if s.head == len(s.items) {
		s.items = s.items[:0]
		s.head = 0
	} else if s.head > 64 && s.head*2 > len(s.items) {
		s.items = append(s.items[:0], s.items[s.head:]...)
		s.head = 0
	}
	return evt, true
}

// Contains implements Storage.
func (s *FIFO) Contains(evt event.Event) bool {
	return s.pending[evt] > 0
}

// Len implements Storage.
func (s *FIFO) Len() int {
	return len(s.items) - s.head
}

// Snapshot implements Storage.
func (s *FIFO) Snapshot() []event.Event {
	out := make([]event.Event, s.Len())
	copy(out, s.items[s.head:])
	return out
}
