// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"
	"time"
)

// CacheService is the time-boxed key/value layer shared by every fetcher.
// Absent and expired are indistinguishable to callers, and backend
// failures surface as misses.
type CacheService interface {
	// Get returns the value for key if it was stored no more than ttl ago
	Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool)

	// Set overwrites the value for key
	Set(ctx context.Context, key string, value []byte)
}
