package event

import (
	"errors"
	"sync/atomic"
)

// ShutdownRequest asks the queue to shut down. Handlers may veto it by
// calling Cancel while it is being handled.
type ShutdownRequest struct {
	Base
	cancelled atomic.Bool
}

// NewShutdownRequest creates a shutdown request.
func NewShutdownRequest() *ShutdownRequest {
	return &ShutdownRequest{}
}

// Cancel vetoes the shutdown. It only has an effect while the request is
// being handled.
func (e *ShutdownRequest) Cancel() {
	e.cancelled.Store(true)
}

// Cancelled reports whether a handler vetoed the request.
func (e *ShutdownRequest) Cancelled() bool {
	return e.cancelled.Load()
}

// ShuttingDown is the irrevocable shutdown sentinel. Once handled, the queue
// refuses new events and drains what is left.
type ShuttingDown struct {
	Base
}

// NewShuttingDown creates a shutting-down sentinel.
func NewShuttingDown() *ShuttingDown {
	return &ShuttingDown{}
}

// ShutDown is the terminal sentinel. Once handled, the subscriber registry
// is cleared and disabled.
type ShutDown struct {
	Base
}

// NewShutDown creates a terminal sentinel.
func NewShutDown() *ShutDown {
	return &ShutDown{}
}

// IsSentinel reports whether evt is one of the lifecycle sentinels.
func IsSentinel(evt Event) bool {
	switch evt.(type) {
	case *ShutdownRequest, *ShuttingDown, *ShutDown:
		return true
	}
	return false
}

// UnhandledError is the diagnostic event raised when a handler fails.
// It carries the failing event's type name and the error text.
type UnhandledError struct {
	Base

	// SourceType is the fully qualified type name of the event whose
	// handler failed.
	SourceType string

	// Message is Err.Error() at the time of failure. It survives
	// serialization when Err does not.
	Message string

	// Err is the handler error. Nil after decoding from a stream.
	Err error
}

// NewUnhandledError wraps a handler failure for source.
func NewUnhandledError(source Event, err error) *UnhandledError {
	e := &UnhandledError{
		SourceType: NameOf(source),
		Err:        err,
	}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// Error implements error.
func (e *UnhandledError) Error() string {
	return "unhandled error in " + e.SourceType + ": " + e.Message
}

// Unwrap returns the handler error, or an error built from Message when the
// event was decoded.
func (e *UnhandledError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Message != "" {
		return errors.New(e.Message)
	}
	return nil
}
