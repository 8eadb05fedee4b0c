// Package memory keeps publication snapshots in process memory.
package memory

import (
	"context"
	"slices"
	"sync"
)

// Store is an in-memory moderation.SnapshotStore.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty snapshot store
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// PutSnapshot stores a copy of body under key, replacing any previous value.
func (s *Store) PutSnapshot(ctx context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(body)
	return nil
}

// Get returns a copy of the snapshot stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	return slices.Clone(b), ok
}

// Keys returns all stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
