package graph

import (
	"iter"
	"sync"
)

// Store is an append-only multiset of statements. Duplicates are kept and
// enumeration follows insertion order.
type Store interface {
	// Append adds every statement of seq and returns how many were added.
	Append(seq iter.Seq[Quad]) (int, error)

	// Count returns the number of statements, duplicates included.
	Count() (int, error)

	// Quads streams the full contents.
	Quads() iter.Seq2[Quad, error]

	// Close releases the backing resources.
	Close() error
}

// MemoryStore is a slice-backed Store.
type MemoryStore struct {
	mu    sync.RWMutex
	quads []Quad
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds the statements of seq.
func (s *MemoryStore) Append(seq iter.Seq[Quad]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.quads)
	for q := range seq {
		s.quads = append(s.quads, q)
	}
	return len(s.quads) - before, nil
}

// Add is a convenience wrapper around Append for literal statements.
func (s *MemoryStore) Add(quads ...Quad) {
	_, _ = s.Append(Values(quads))
}

// Count returns the number of stored statements.
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quads), nil
}

// Quads streams a snapshot of the stored statements.
func (s *MemoryStore) Quads() iter.Seq2[Quad, error] {
	s.mu.RLock()
	snapshot := s.quads[:len(s.quads):len(s.quads)]
	s.mu.RUnlock()

	return func(yield func(Quad, error) bool) {
		for _, q := range snapshot {
			if !yield(q, nil) {
				return
			}
		}
	}
}

// Close is a no-op; the contents live until the store is garbage collected.
func (s *MemoryStore) Close() error {
	return nil
}
