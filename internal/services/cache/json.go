package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/tickerlens/internal/interfaces"
)

// GetJSON reads and decodes a cached value. Undecodable values are misses.
func GetJSON[T any](ctx context.Context, c interfaces.CacheService, key string, ttl time.Duration) (T, bool) {
	var value T
	data, ok := c.Get(ctx, key, ttl)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// SetJSON encodes and stores value. Unencodable values are dropped.
func SetJSON(ctx context.Context, c interfaces.CacheService, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// Fetch returns the cached value for key, or calls fetch and caches its
// result. Errors from fetch are returned and nothing is cached.
func Fetch[T any](ctx context.Context, c interfaces.CacheService, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if value, ok := GetJSON[T](ctx, c, key, ttl); ok {
		return value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	SetJSON(ctx, c, key, value)
	return value, nil
}
