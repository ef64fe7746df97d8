package storage

import (
	"context"
	"sync"

	"github.com/settleflow/settleflow/pkg/errors"
)

// MemoryStore is the reference in-memory Store implementation. It is safe
// for concurrent use; the map is guarded by a mutex because the store is
// shared between the pipeline stages.
type MemoryStore[K Key, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore[K Key, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{
		items: make(map[K]V),
	}
}

// Get returns the value stored under key.
func (s *MemoryStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.items[key]
	if !ok {
		var zero V
		return zero, errors.StorageWrap(errors.ErrNotFound, errors.OpGet, errors.Sprintf("key %v", key))
	}
	return value, nil
}

// Set stores value under key.
func (s *MemoryStore[K, V]) Set(ctx context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
	return nil
}

// All returns a copy of every stored entry.
func (s *MemoryStore[K, V]) All(ctx context.Context) (map[K]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[K]V, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	return snapshot, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

var _ Store[uint16, struct{}] = (*MemoryStore[uint16, struct{}])(nil)
