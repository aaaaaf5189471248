package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingStorage fails every operation
type failingStorage struct{}

func (failingStorage) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	return nil, errors.New("disk on fire")
}
func (failingStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	return errors.New("disk on fire")
}
func (failingStorage) Delete(ctx context.Context, key string) error { return errors.New("disk on fire") }
func (failingStorage) DeleteStoredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, errors.New("disk on fire")
}
func (failingStorage) Close() error { return nil }

func TestService_TTLBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	svc := NewService(memory.NewCacheStorage(), arbor.NewLogger(), WithClock(clock.Now))
	ctx := context.Background()
	ttl := 1000 * time.Millisecond

	svc.Set(ctx, "k", []byte("v"))

	clock.Advance(999 * time.Millisecond)
	value, ok := svc.Get(ctx, "k", ttl)
	require.True(t, ok, "entry within TTL must hit")
	assert.Equal(t, []byte("v"), value)

	clock.Advance(2 * time.Millisecond) // t=1001ms
	_, ok = svc.Get(ctx, "k", ttl)
	assert.False(t, ok, "entry older than TTL must miss")
}

func TestService_ExactTTLIsValid(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	svc := NewService(memory.NewCacheStorage(), arbor.NewLogger(), WithClock(clock.Now))
	ctx := context.Background()

	svc.Set(ctx, "k", []byte("v"))
	clock.Advance(time.Second)

	_, ok := svc.Get(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestService_MissingKey(t *testing.T) {
	svc := NewService(memory.NewCacheStorage(), arbor.NewLogger())

	_, ok := svc.Get(context.Background(), "absent", time.Hour)
	assert.False(t, ok)
}

func TestService_OverwriteRefreshesAge(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	svc := NewService(memory.NewCacheStorage(), arbor.NewLogger(), WithClock(clock.Now))
	ctx := context.Background()

	svc.Set(ctx, "k", []byte("old"))
	clock.Advance(50 * time.Minute)
	svc.Set(ctx, "k", []byte("new"))
	clock.Advance(50 * time.Minute)

	value, ok := svc.Get(ctx, "k", time.Hour)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), value)
}

func TestService_StorageErrorsAreMisses(t *testing.T) {
	svc := NewService(failingStorage{}, arbor.NewLogger())
	ctx := context.Background()

	assert.NotPanics(t, func() { svc.Set(ctx, "k", []byte("v")) })

	_, ok := svc.Get(ctx, "k", time.Hour)
	assert.False(t, ok)
}

func TestFetch_CachesSuccessOnly(t *testing.T) {
	svc := NewService(memory.NewCacheStorage(), arbor.NewLogger())
	ctx := context.Background()
	calls := 0

	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"AAPL", "iPhone"}, nil
	}

	first, err := Fetch(ctx, svc, "keywords:AAPL:2024-01-05", time.Hour, fetch)
	require.NoError(t, err)
	second, err := Fetch(ctx, svc, "keywords:AAPL:2024-01-05", time.Hour, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = Fetch(ctx, svc, "keywords:MSFT:2024-01-05", time.Hour, func(ctx context.Context) ([]string, error) {
		return nil, errors.New("upstream down")
	})
	assert.Error(t, err)
	_, ok := svc.Get(ctx, "keywords:MSFT:2024-01-05", time.Hour)
	assert.False(t, ok, "failures are never cached")
}

func TestSweeper_RemovesOldEntries(t *testing.T) {
	storage := memory.NewCacheStorage()
	clock := &fakeClock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	svc := NewService(storage, arbor.NewLogger(), WithClock(clock.Now))
	ctx := context.Background()

	svc.Set(ctx, "old", []byte("1"))
	clock.Advance(48 * time.Hour)
	svc.Set(ctx, "fresh", []byte("2"))

	sweeper := NewSweeper(storage, arbor.NewLogger(), 24*time.Hour)
	sweeper.now = clock.Now

	assert.Equal(t, 1, sweeper.Sweep(ctx))
	assert.Equal(t, 1, storage.Len())
}
