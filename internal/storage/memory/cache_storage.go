// Package memory provides an in-process cache backend used for tests and
// single-shot runs where persistence across restarts is not needed.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
)

// CacheStorage implements interfaces.CacheStorage with a guarded map
type CacheStorage struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewCacheStorage creates an empty store
func NewCacheStorage() *CacheStorage {
	return &CacheStorage{entries: make(map[string]models.CacheEntry)}
}

func (s *CacheStorage) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	entry.Value = append([]byte(nil), entry.Value...)
	return &entry, nil
}

func (s *CacheStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.Value = append([]byte(nil), entry.Value...)
	s.entries[entry.Key] = stored
	return nil
}

func (s *CacheStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *CacheStorage) DeleteStoredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.StoredAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries
func (s *CacheStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *CacheStorage) Close() error {
	return nil
}
