package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T) *CacheStorage {
	t.Helper()

	store, err := badgerhold.Open(storeOptions(t.TempDir()))
	require.NoError(t, err)

	db := &BadgerDB{store: store}
	storage := NewCacheStorage(db, arbor.NewLogger())
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestCacheStorage_PutGetOverwrite(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	storedAt := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	_, err := storage.Get(ctx, "quote:AAPL:2024-01-05")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, storage.Put(ctx, &models.CacheEntry{
		Key:      "quote:AAPL:2024-01-05",
		Value:    []byte(`{"current":185.1}`),
		StoredAt: storedAt,
		TTL:      time.Hour,
	}))

	entry, err := storage.Get(ctx, "quote:AAPL:2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"current":185.1}`), entry.Value)
	assert.True(t, storedAt.Equal(entry.StoredAt))
	assert.Equal(t, time.Hour, entry.TTL)

	// Last write wins
	require.NoError(t, storage.Put(ctx, &models.CacheEntry{
		Key:      "quote:AAPL:2024-01-05",
		Value:    []byte(`{"current":186.0}`),
		StoredAt: storedAt.Add(time.Minute),
	}))
	entry, err = storage.Get(ctx, "quote:AAPL:2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"current":186.0}`), entry.Value)
}

func TestCacheStorage_DeleteStoredBefore(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, storage.Put(ctx, &models.CacheEntry{
			Key:      key,
			Value:    []byte(key),
			StoredAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}

	removed, err := storage.DeleteStoredBefore(ctx, base.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = storage.Get(ctx, "a")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = storage.Get(ctx, "c")
	assert.NoError(t, err)

	require.NoError(t, storage.Delete(ctx, "c"))
	require.NoError(t, storage.Delete(ctx, "missing"))
}
