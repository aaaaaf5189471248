package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
)

// ResultStorage implements interfaces.ResultStorage for SQLite
type ResultStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *SQLiteDB, logger arbor.ILogger) *ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the stored result for (ticker, date, version)
func (s *ResultStorage) Get(ctx context.Context, ticker, date, version string) (*models.StoredResult, error) {
	query := `
	SELECT data, historical, updated_at
	FROM analysis_results
	WHERE ticker = ? AND baseline_date = ? AND version = ?`

	var (
		data       string
		historical int
		updatedAt  int64
	)
	err := s.db.DB().QueryRowContext(ctx, query, ticker, date, version).Scan(&data, &historical, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}

	return &models.StoredResult{
		Ticker:     ticker,
		Date:       date,
		Version:    version,
		Data:       []byte(data),
		Historical: historical == 1,
		UpdatedAt:  time.UnixMilli(updatedAt).UTC(),
	}, nil
}

// Upsert inserts or replaces a result
func (s *ResultStorage) Upsert(ctx context.Context, result *models.StoredResult) error {
	query := `
	INSERT INTO analysis_results (ticker, baseline_date, version, data, historical, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(ticker, baseline_date, version) DO UPDATE SET
		data = excluded.data,
		historical = excluded.historical,
		updated_at = excluded.updated_at`

	historical := 0
	if result.Historical {
		historical = 1
	}

	_, err := s.db.DB().ExecContext(ctx, query,
		result.Ticker, result.Date, result.Version, string(result.Data), historical, result.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert analysis result: %w", err)
	}

	s.logger.Debug().
		Str("ticker", result.Ticker).
		Str("date", result.Date).
		Str("version", result.Version).
		Msg("Stored analysis result")
	return nil
}

// Close closes the database
func (s *ResultStorage) Close() error {
	return s.db.Close()
}
