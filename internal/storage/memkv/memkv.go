// Package memkv provides an in-memory KV backend, used in tests and as the
// default when no persistent store is configured.
package memkv

import (
	"context"
	"sync"

	"github.com/mkale/splitledger/internal/storage"
)

// Ensure Store implements storage.KV
var _ storage.KV = (*Store)(nil)

// Store is a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.entries[key] = v
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
