package queue

import (
	"errors"
	"fmt"
)

// Sentinel errors for queue usage.
var (
	// ErrNilEvent indicates a nil event was passed to a queue.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrNotSuspended indicates Resume was called on an enabled feature.
	ErrNotSuspended = errors.New("feature is not suspended")

	// ErrCriticalEvent indicates a critical event was sent down the regular path.
	ErrCriticalEvent = errors.New("critical events must be handled with HandleCritical")

	// ErrNotCritical indicates a regular event was sent down the critical path.
	ErrNotCritical = errors.New("event is not critical")
)

// InvariantError reports a broken internal invariant of the queue. It is
// raised with panic; it is never returned to callers.
type InvariantError struct {
	// Op is the step that detected the violation.
	Op string
	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("queue invariant violated in %s: %s", e.Op, e.Message)
}
