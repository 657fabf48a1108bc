package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore persists snapshots to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A :memory: database lives in a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			queue TEXT NOT NULL,
			name TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			format TEXT NOT NULL,
			verbose INTEGER NOT NULL,
			events INTEGER NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (queue, name)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(queue, name string, blob Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	data := blob.Data
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.Exec(`
		INSERT INTO snapshots (queue, name, sequence, timestamp, format, verbose, events, data)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(sequence) FROM snapshots WHERE queue = ?), 0) + 1,
			?, ?, ?, ?, ?
		)
		ON CONFLICT(queue, name) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM snapshots WHERE queue = excluded.queue) + 1,
			timestamp = excluded.timestamp,
			format = excluded.format,
			verbose = excluded.verbose,
			events = excluded.events,
			data = excluded.data
	`, queue, name, queue, time.Now().UTC().Format(time.RFC3339Nano),
		blob.Format, blob.Verbose, blob.Events, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(queue, name string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Blob{}, ErrStoreClosed
	}

	var blob Blob
	err := s.db.QueryRow(`
		SELECT format, verbose, events, data FROM snapshots
		WHERE queue = ? AND name = ?
	`, queue, name).Scan(&blob.Format, &blob.Verbose, &blob.Events, &blob.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("load snapshot: %w", err)
	}
	return blob, nil
}

// List implements Store.
func (s *SQLiteStore) List(queue string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT name, sequence, timestamp, format, verbose, events, LENGTH(data)
		FROM snapshots
		WHERE queue = ?
		ORDER BY sequence
	`, queue)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		info := Info{Queue: queue}
		var timestamp string
		if err := rows.Scan(&info.Name, &info.Sequence, &timestamp, &info.Format,
			&info.Verbose, &info.Events, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(queue, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE queue = ? AND name = ?`, queue, name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// DeleteQueue implements Store.
func (s *SQLiteStore) DeleteQueue(queue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE queue = ?`, queue); err != nil {
		return fmt.Errorf("delete queue snapshots: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
