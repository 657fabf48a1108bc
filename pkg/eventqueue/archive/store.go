// Package archive stores encoded event stream snapshots.
//
// A snapshot is the pending events of a queue encoded with package wire.
// Snapshots are grouped by queue name and addressed by snapshot name.
package archive

import (
	"errors"
	"time"
)

// Store persists snapshots. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot, overwriting one with the same queue and name.
	Save(queue, name string, blob Blob) error

	// Load retrieves a snapshot. Returns ErrNotFound if it doesn't exist.
	Load(queue, name string) (Blob, error)

	// List returns the snapshots of a queue, oldest save first.
	// Returns an empty slice (not an error) if there are none.
	List(queue string) ([]Info, error)

	// Delete removes one snapshot. Returns nil if it doesn't exist.
	Delete(queue, name string) error

	// DeleteQueue removes every snapshot of a queue.
	DeleteQueue(queue string) error

	// Close releases any resources.
	Close() error
}

// Blob is an encoded stream plus what is needed to decode it.
type Blob struct {
	// Format is the wire format name, "binary" or "text".
	Format string
	// Verbose records the serializer mode.
	Verbose bool
	// Events is the number of records in Data.
	Events int
	Data   []byte
}

// Info describes a snapshot without its data.
type Info struct {
	Queue     string
	Name      string
	Format    string
	Verbose   bool
	Events    int
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for archive operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
