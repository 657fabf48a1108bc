package eventqueue

import (
	"errors"
	"fmt"
)

// Sentinel errors for hub operations.
var (
	// ErrNoArchive indicates a snapshot operation without a configured archive.
	ErrNoArchive = errors.New("no snapshot archive configured")
)

// SnapshotError wraps failures while saving or restoring a snapshot.
type SnapshotError struct {
	// Name is the snapshot name.
	Name string
	// Op is "encode", "save", "load" or "decode".
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s: %s: %v", e.Name, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SnapshotError) Unwrap() error {
	return e.Err
}
