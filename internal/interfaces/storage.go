package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/tickerlens/internal/models"
)

// ErrNotFound is returned by storage backends when a key has no record
var ErrNotFound = errors.New("not found")

// CacheStorage is the backend behind the cache layer. Writes are
// last-write-wins overwrites keyed by the rendered FetchKey.
type CacheStorage interface {
	// Get returns the entry for key or ErrNotFound
	Get(ctx context.Context, key string) (*models.CacheEntry, error)

	// Put overwrites the entry for entry.Key
	Put(ctx context.Context, entry *models.CacheEntry) error

	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// DeleteStoredBefore removes every entry stored before cutoff and
	// returns how many were removed
	DeleteStoredBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the backend
	Close() error
}

// ResultStorage is the durable analysis result store
type ResultStorage interface {
	// Get returns the stored result for (ticker, date, version) or ErrNotFound
	Get(ctx context.Context, ticker, date, version string) (*models.StoredResult, error)

	// Upsert inserts or replaces the result for its (ticker, date, version)
	Upsert(ctx context.Context, result *models.StoredResult) error

	// Close releases the store
	Close() error
}
