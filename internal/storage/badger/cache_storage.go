package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CacheStorage implements interfaces.CacheStorage on badgerhold
type CacheStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCacheStorage creates a new CacheStorage instance
func NewCacheStorage(db *BadgerDB, logger arbor.ILogger) *CacheStorage {
	return &CacheStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an entry by key
func (s *CacheStorage) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.Store().Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &entry, nil
}

// Put overwrites the entry stored under entry.Key
func (s *CacheStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := s.db.Store().Upsert(entry.Key, entry); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry; missing keys are ignored
func (s *CacheStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(key, &models.CacheEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteStoredBefore removes entries stored before cutoff
func (s *CacheStorage) DeleteStoredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("StoredAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.CacheEntry{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired cache entries: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.CacheEntry{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	s.logger.Debug().Int("count", int(count)).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Deleted expired cache entries")
	return int(count), nil
}

// Close closes the underlying database
func (s *CacheStorage) Close() error {
	return s.db.Close()
}
