// Package redis provides a shared cache backend for multi-process deployments.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheStorage implements interfaces.CacheStorage on Redis. Entries are
// msgpack-encoded and carry a native expiry of maxAge so Redis evicts
// them without the sweeper.
type CacheStorage struct {
	client *redis.Client
	prefix string
	maxAge time.Duration
	logger arbor.ILogger
}

// NewCacheStorage connects to Redis and verifies the connection
func NewCacheStorage(ctx context.Context, logger arbor.ILogger, config *common.RedisConfig, maxAge time.Duration) (*CacheStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Debug().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Redis cache storage initialized")

	return NewCacheStorageWithClient(client, config.KeyPrefix, maxAge, logger), nil
}

// NewCacheStorageWithClient wraps an existing client
func NewCacheStorageWithClient(client *redis.Client, prefix string, maxAge time.Duration, logger arbor.ILogger) *CacheStorage {
	return &CacheStorage{
		client: client,
		prefix: prefix,
		maxAge: maxAge,
		logger: logger,
	}
}

func (s *CacheStorage) key(key string) string {
	return s.prefix + key
}

// Get retrieves an entry by key
func (s *CacheStorage) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry models.CacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Put overwrites the entry stored under entry.Key
func (s *CacheStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	expiry := s.maxAge
	if entry.TTL > expiry {
		expiry = entry.TTL
	}
	if err := s.client.Set(ctx, s.key(entry.Key), data, expiry).Err(); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry; missing keys are ignored
func (s *CacheStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteStoredBefore scans the key prefix and removes entries stored before cutoff
func (s *CacheStorage) DeleteStoredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		entry, err := s.Get(ctx, fullKey[len(s.prefix):])
		if err != nil {
			continue
		}
		if entry.StoredAt.Before(cutoff) {
			if err := s.client.Del(ctx, fullKey).Err(); err != nil {
				return removed, fmt.Errorf("failed to delete expired cache entry: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	return removed, nil
}

// Close closes the client
func (s *CacheStorage) Close() error {
	return s.client.Close()
}
