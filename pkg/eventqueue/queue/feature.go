package queue

import (
	"sync"
)

// Feature is a named switch that can be suspended and resumed.
// Suspensions nest; the feature is enabled when every Suspend has been
// matched by a Resume.
type Feature struct {
	name string

	// mu is the owning queue's lock.
	mu        *sync.Mutex
	suspended int

	onSuspend []func()
	onResume  []func()
}

func newFeature(name string, mu *sync.Mutex) *Feature {
	return &Feature{name: name, mu: mu}
}

// Name returns the feature name, e.g. "event_handling".
func (f *Feature) Name() string {
	return f.name
}

// Suspend disables the feature until the matching Resume.
func (f *Feature) Suspend() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.suspended++
	if f.suspended == 1 {
		for _, fn := range f.onSuspend {
			fn()
		}
	}
}

// Resume undoes one Suspend. Returns ErrNotSuspended if the feature is
// already enabled.
func (f *Feature) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.suspended == 0 {
		return ErrNotSuspended
	}
	f.suspended--
	if f.suspended == 0 {
		for _, fn := range f.onResume {
			fn()
		}
	}
	return nil
}

// IsEnabled reports whether the feature is active.
func (f *Feature) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended == 0
}

// IsSuspended reports whether the feature is suspended.
func (f *Feature) IsSuspended() bool {
	return !f.IsEnabled()
}

func (f *Feature) enabledLocked() bool {
	return f.suspended == 0
}

// watch registers callbacks for the enabled/suspended edges. They run with
// the queue lock held.
func (f *Feature) watch(onSuspend, onResume func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if onSuspend != nil {
		f.onSuspend = append(f.onSuspend, onSuspend)
	}
	if onResume != nil {
		f.onResume = append(f.onResume, onResume)
	}
}
