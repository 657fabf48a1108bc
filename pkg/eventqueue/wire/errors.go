package wire

import (
	"errors"
)

// Sentinel errors for stream handling.
var (
	// ErrUnsupportedVersion indicates a stream header with an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported stream format version")

	// ErrOverRead indicates a read past the end of the current record.
	ErrOverRead = errors.New("read past end of record")

	// ErrUnknownType indicates an event type missing from the type registry.
	ErrUnknownType = errors.New("unknown event type")

	// ErrDuplicateType indicates a type name registered twice.
	ErrDuplicateType = errors.New("event type already registered")

	// ErrMalformed indicates bytes that do not follow the stream layout.
	ErrMalformed = errors.New("malformed stream")

	// ErrVarintOverflow indicates a varint longer than 32 bits.
	ErrVarintOverflow = errors.New("varint overflows 32 bits")

	// ErrNoRecord indicates a field write or read outside a record.
	ErrNoRecord = errors.New("no record in progress")
)

// FormatError reports a failure to read or write a stream.
type FormatError struct {
	// Op is the operation that failed, e.g. "read int32".
	Op string
	// Err is the cause, usually one of the sentinel errors above.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return "wire: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(op string, err error) error {
	return &FormatError{Op: op, Err: err}
}
