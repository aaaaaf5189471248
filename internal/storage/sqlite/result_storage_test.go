package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
)

func newTestResultStorage(t *testing.T) *ResultStorage {
	t.Helper()

	db, err := NewSQLiteDB(arbor.NewLogger(), &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "results.db"),
		WALMode:       true,
		BusyTimeoutMS: 1000,
	})
	require.NoError(t, err)

	storage := NewResultStorage(db, arbor.NewLogger())
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestResultStorage_UpsertIsIdempotentOverwrite(t *testing.T) {
	storage := newTestResultStorage(t)
	ctx := context.Background()

	_, err := storage.Get(ctx, "AAPL", "2024-01-05", "claude|v2")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	first := &models.StoredResult{
		Ticker:     "AAPL",
		Date:       "2024-01-05",
		Version:    "claude|v2",
		Data:       []byte(`{"model":"claude"}`),
		Historical: true,
		UpdatedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, storage.Upsert(ctx, first))
	require.NoError(t, storage.Upsert(ctx, first))

	got, err := storage.Get(ctx, "AAPL", "2024-01-05", "claude|v2")
	require.NoError(t, err)
	assert.Equal(t, first.Data, got.Data)
	assert.True(t, got.Historical)
	assert.True(t, first.UpdatedAt.Equal(got.UpdatedAt))

	second := *first
	second.Data = []byte(`{"model":"claude","rerun":true}`)
	second.UpdatedAt = first.UpdatedAt.Add(24 * time.Hour)
	require.NoError(t, storage.Upsert(ctx, &second))

	got, err = storage.Get(ctx, "AAPL", "2024-01-05", "claude|v2")
	require.NoError(t, err)
	assert.Equal(t, second.Data, got.Data, "re-run supersedes, never appends")

	var rows int
	require.NoError(t, storage.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_results").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestResultStorage_KeyPartitions(t *testing.T) {
	storage := newTestResultStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, storage.Upsert(ctx, &models.StoredResult{Ticker: "AAPL", Date: "2024-01-05", Version: "a", Data: []byte(`1`), UpdatedAt: now}))
	require.NoError(t, storage.Upsert(ctx, &models.StoredResult{Ticker: "AAPL", Date: "2024-01-05", Version: "b", Data: []byte(`2`), UpdatedAt: now}))

	a, err := storage.Get(ctx, "AAPL", "2024-01-05", "a")
	require.NoError(t, err)
	b, err := storage.Get(ctx, "AAPL", "2024-01-05", "b")
	require.NoError(t, err)
	assert.Equal(t, []byte(`1`), a.Data)
	assert.Equal(t, []byte(`2`), b.Data)
}
