// Package postgres provides a result store for deployments that share one
// database across several processes.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	ticker TEXT NOT NULL,
	baseline_date TEXT NOT NULL,
	version TEXT NOT NULL,
	data TEXT NOT NULL, -- TEXT keeps cached responses byte-identical
	historical BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (ticker, baseline_date, version)
)`

// ResultStorage implements interfaces.ResultStorage on Postgres
type ResultStorage struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

// NewResultStorage connects, verifies and ensures the schema exists
func NewResultStorage(ctx context.Context, logger arbor.ILogger, config *common.PostgresConfig) (*ResultStorage, error) {
	if config.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create analysis_results table: %w", err)
	}

	logger.Info().Msg("Postgres result store initialized")
	return &ResultStorage{pool: pool, logger: logger}, nil
}

// Get returns the stored result for (ticker, date, version)
func (s *ResultStorage) Get(ctx context.Context, ticker, date, version string) (*models.StoredResult, error) {
	result := &models.StoredResult{Ticker: ticker, Date: date, Version: version}

	err := s.pool.QueryRow(ctx, `
		SELECT data, historical, updated_at
		FROM analysis_results
		WHERE ticker = $1 AND baseline_date = $2 AND version = $3`,
		ticker, date, version,
	).Scan(&result.Data, &result.Historical, &result.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return result, nil
}

// Upsert inserts or replaces a result
func (s *ResultStorage) Upsert(ctx context.Context, result *models.StoredResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_results (ticker, baseline_date, version, data, historical, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker, baseline_date, version) DO UPDATE SET
			data = EXCLUDED.data,
			historical = EXCLUDED.historical,
			updated_at = EXCLUDED.updated_at`,
		result.Ticker, result.Date, result.Version, string(result.Data), result.Historical, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis result: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *ResultStorage) Close() error {
	s.pool.Close()
	return nil
}
