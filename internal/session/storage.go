package session

import (
	"context"
	"sync"
)

// Storage is a per-visit key/value slot. It only needs to survive for the
// lifetime of one client visit.
type Storage interface {
	// Get returns ok=false when the key has never been set (not an error).
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-process storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set implements Storage.
func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

var _ Storage = (*MemoryStorage)(nil)
