// Package history resolves a point-in-time closing price for a past
// baseline date.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/fallback"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
)

const (
	// CacheTTL is how long a resolved historical close is reused
	CacheTTL = 30 * 24 * time.Hour

	// lookbackDays bounds the search for the nearest prior trading day
	lookbackDays = 5
)

// EODAPI is the subset of the EODHD client used here
type EODAPI interface {
	GetEOD(ctx context.Context, symbol string, opts ...eodhd.QueryOption) (eodhd.EODResponse, error)
}

// ChartAPI is the subset of the Yahoo client used here
type ChartAPI interface {
	GetHistory(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error)
}

// Service resolves historical prices
type Service struct {
	eod    EODAPI
	chart  ChartAPI
	cache  interfaces.CacheService
	logger arbor.ILogger
}

// NewService creates a resolver. Either source may be nil.
func NewService(eod EODAPI, chart ChartAPI, cacheService interfaces.CacheService, logger arbor.ILogger) *Service {
	return &Service{eod: eod, chart: chart, cache: cacheService, logger: logger}
}

// Resolve returns the close on date, or on the nearest prior trading day
// within five days, from the first provider that has it
func (s *Service) Resolve(ctx context.Context, ticker common.Ticker, date time.Time) (*models.HistoricalPrice, error) {
	key := models.NewFetchKey(models.KindHistPrice, ticker.Code, date, "").String()

	return cache.Fetch(ctx, s.cache, key, CacheTTL, func(ctx context.Context) (*models.HistoricalPrice, error) {
		var steps []fallback.Step[*models.HistoricalPrice]
		if s.eod != nil {
			steps = append(steps, fallback.Step[*models.HistoricalPrice]{
				Name: "eodhd",
				Call: func(ctx context.Context) (*models.HistoricalPrice, error) {
					return s.fromEOD(ctx, ticker, date)
				},
			})
		}
		if s.chart != nil {
			steps = append(steps, fallback.Step[*models.HistoricalPrice]{
				Name: "yahoo",
				Call: func(ctx context.Context) (*models.HistoricalPrice, error) {
					return s.fromChart(ctx, ticker, date)
				},
			})
		}

		result, err := fallback.FirstSuccess(ctx, "historical price", steps, nil)
		if err != nil {
			s.logger.Warn().Str("ticker", ticker.Code).Str("date", common.FormatDate(date)).Err(err).Msg("Historical price unavailable")
			return nil, err
		}
		return result.Value, nil
	})
}

func (s *Service) fromEOD(ctx context.Context, ticker common.Ticker, date time.Time) (*models.HistoricalPrice, error) {
	rows, err := s.eod.GetEOD(ctx, ticker.EODHDSymbol(), eodhd.WithDateRange(date.AddDate(0, 0, -lookbackDays), date))
	if err != nil {
		return nil, fmt.Errorf("eodhd: %w", err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, models.Bar{Date: r.Date, Close: r.Close})
	}
	return nearest(bars, date, "eodhd")
}

func (s *Service) fromChart(ctx context.Context, ticker common.Ticker, date time.Time) (*models.HistoricalPrice, error) {
	bars, err := s.chart.GetHistory(ctx, ticker.YahooSymbol(), date.AddDate(0, 0, -lookbackDays))
	if err != nil {
		return nil, fmt.Errorf("yahoo: %w", err)
	}
	return nearest(bars, date, "yahoo")
}

// nearest picks the latest bar on or before date and no older than the
// lookback window
func nearest(bars []models.Bar, date time.Time, source string) (*models.HistoricalPrice, error) {
	day := common.FormatDate(date)
	floor := common.FormatDate(date.AddDate(0, 0, -lookbackDays))

	var best *models.Bar
	for i := range bars {
		d := common.FormatDate(bars[i].Date)
		if d > day || d < floor || bars[i].Close <= 0 {
			continue
		}
		if best == nil || d > common.FormatDate(best.Date) {
			best = &bars[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s: no close between %s and %s: %w", source, floor, day, fallback.ErrEmpty)
	}

	return &models.HistoricalPrice{
		Price:  best.Close,
		Date:   common.FormatDate(best.Date),
		Source: source,
	}, nil
}
