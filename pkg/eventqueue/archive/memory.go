package archive

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedBlob // queue -> name -> snapshot
	closed bool
}

type storedBlob struct {
	blob      Blob
	sequence  int
	timestamp time.Time
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedBlob),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(queue, name string, blob Blob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[queue] == nil {
		m.data[queue] = make(map[string]storedBlob)
	}

	seq := 1
	for _, s := range m.data[queue] {
		if s.sequence >= seq {
			seq = s.sequence + 1
		}
	}

	blob.Data = append([]byte(nil), blob.Data...)
	m.data[queue][name] = storedBlob{
		blob:      blob,
		sequence:  seq,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(queue, name string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Blob{}, ErrStoreClosed
	}
	s, ok := m.data[queue][name]
	if !ok {
		return Blob{}, ErrNotFound
	}

	blob := s.blob
	blob.Data = append([]byte(nil), s.blob.Data...)
	return blob, nil
}

// List implements Store.
func (m *MemoryStore) List(queue string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data[queue]))
	for name, s := range m.data[queue] {
		infos = append(infos, Info{
			Queue:     queue,
			Name:      name,
			Format:    s.blob.Format,
			Verbose:   s.blob.Verbose,
			Events:    s.blob.Events,
			Sequence:  s.sequence,
			Timestamp: s.timestamp,
			Size:      int64(len(s.blob.Data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(queue, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data[queue], name)
	return nil
}

// DeleteQueue implements Store.
func (m *MemoryStore) DeleteQueue(queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, queue)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
