package transcript

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps transcripts in memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Record)}
}

// Save stores a copy of the record, replacing any previous one.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = cloneRecord(rec)
	return nil
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// List returns the stored ids, sorted.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the record. Deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// cloneRecord copies the record so callers cannot mutate stored state.
func cloneRecord(rec Record) Record {
	out := rec
	out.Entries = make([]Entry, len(rec.Entries))
	copy(out.Entries, rec.Entries)
	return out
}
