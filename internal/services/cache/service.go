// Package cache provides the time-boxed key/value layer shared by every
// fetcher. Caching is an optimization only: backend failures are logged
// and surface as misses or dropped writes.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
)

// Service implements interfaces.CacheService over a CacheStorage backend
type Service struct {
	storage interfaces.CacheStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used for entry age
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new cache service
func NewService(storage interfaces.CacheStorage, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key when its age is within ttl.
// Missing, expired and unreadable entries all report false.
func (s *Service) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	entry, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		}
		return nil, false
	}

	if entry.Expired(s.now(), ttl) {
		s.logger.Trace().Str("key", key).Dur("ttl", ttl).Msg("Cache entry expired")
		return nil, false
	}

	return entry.Value, true
}

// Set overwrites the value stored under key
func (s *Service) Set(ctx context.Context, key string, value []byte) {
	entry := &models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: s.now(),
	}
	if err := s.storage.Put(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed, dropping entry")
	}
}
