// Package memory provides an in-process implementation of the storage.Store interface.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mmynk/foyer/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps values in a map. A positive quota limits the total size of keys and values.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int64
}

// New returns an empty store. A quota of zero or less means unlimited.
func New(quota int64) *Store {
	return &Store{values: make(map[string]string), quota: quota}
}

func (s *Store) Get(_ context.Context, key, missing string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return missing, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		var used int64
		for k, v := range s.values {
			if k != key {
				used += storage.Usage(k, v)
			}
		}
		if used+storage.Usage(key, value) > s.quota {
			return fmt.Errorf("set %s: %w", key, storage.ErrQuotaExceeded)
		}
	}

	s.values[key] = value
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}
