package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store backed by a map. Keys and values are
// copied on the way in and out.
type MemoryStore struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key
func (s *MemoryStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	value, ok := s.data[string(key)]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

// Put stores a copy of value under key
func (s *MemoryStore) Put(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	s.data[string(key)] = cloneBytes(value)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func cloneBytes(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
