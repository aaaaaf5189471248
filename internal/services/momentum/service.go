// Package momentum computes technical momentum indicators from a daily
// series fetched through an ordered provider chain.
package momentum

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	// MinRows is the history required after slicing to the baseline date
	MinRows = 60

	// SeriesTTL is how long a provider series is reused
	SeriesTTL = 24 * time.Hour

	// seriesSpan covers the 12-month return plus weekends and holidays
	seriesSpan = 400 * 24 * time.Hour
)

// ErrNoData is returned when the series is too short to compute metrics
var ErrNoData = errors.New("insufficient price history for momentum")

// EODAPI is the subset of the EODHD client used here
type EODAPI interface {
	GetEOD(ctx context.Context, symbol string, opts ...eodhd.QueryOption) (eodhd.EODResponse, error)
}

// ChartAPI is the subset of the Yahoo client used here
type ChartAPI interface {
	GetHistory(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error)
}

// Service computes momentum metrics
type Service struct {
	eod     EODAPI
	chart   ChartAPI
	cache   interfaces.CacheService
	sectors *SectorTable
	logger  arbor.ILogger
}

// NewService creates a momentum engine. Either source may be nil.
func NewService(eod EODAPI, chart ChartAPI, cacheService interfaces.CacheService, sectors *SectorTable, logger arbor.ILogger) *Service {
	if sectors == nil {
		sectors = DefaultSectorTable()
	}
	return &Service{eod: eod, chart: chart, cache: cacheService, sectors: sectors, logger: logger}
}

// Metrics computes indicators for ticker as of date and attaches the
// sector basket's 3-month return when it can be fetched
func (s *Service) Metrics(ctx context.Context, ticker common.Ticker, date time.Time) (*models.MomentumMetrics, error) {
	series, err := s.Series(ctx, ticker, date)
	if err != nil {
		return nil, err
	}

	metrics, err := Compute(series.Bars)
	if err != nil {
		return nil, err
	}
	metrics.Source = series.Source
	metrics.SectorETF = s.sectors.Basket(ticker.Code)

	if metrics.SectorETF != ticker.Code {
		if basket, err := s.Series(ctx, common.ParseTicker(metrics.SectorETF), date); err == nil {
			sliced := sliceTo(basket.Bars, date)
			if r := PctChange(sliced, Offset3M); r != nil {
				metrics.SectorReturn = r
				if metrics.Return3M != nil {
					rel := *metrics.Return3M - *r
					metrics.RelativeToETF = &rel
				}
			}
		} else {
			s.logger.Debug().Str("ticker", ticker.Code).Str("etf", metrics.SectorETF).Err(err).Msg("Sector basket unavailable")
		}
	}

	return metrics, nil
}

// Series returns the daily bars for ticker up to date, newest first, from
// the first provider that has any. Each provider's answer is cached on
// its own key.
func (s *Service) Series(ctx context.Context, ticker common.Ticker, date time.Time) (*models.Series, error) {
	var steps []fallback.Step[*models.Series]
	if s.eod != nil {
		steps = append(steps, fallback.Step[*models.Series]{
			Name: "eodhd",
			Call: func(ctx context.Context) (*models.Series, error) {
				return s.cachedSeries(ctx, ticker, date, "eodhd", s.fromEOD)
			},
		})
	}
	if s.chart != nil {
		steps = append(steps, fallback.Step[*models.Series]{
			Name: "yahoo",
			Call: func(ctx context.Context) (*models.Series, error) {
				return s.cachedSeries(ctx, ticker, date, "yahoo", s.fromChart)
			},
		})
	}

	result, err := fallback.FirstSuccess(ctx, "price series", steps, func(series *models.Series) bool {
		return series != nil && len(series.Bars) > 0
	})
	if err != nil {
		return nil, err
	}

	series := result.Value
	series.Bars = sliceTo(series.Bars, date)
	return series, nil
}

func (s *Service) cachedSeries(ctx context.Context, ticker common.Ticker, date time.Time, source string,
	fetch func(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Bar, error)) (*models.Series, error) {

	key := models.NewFetchKey(models.KindSeries, ticker.Code, date, source).String()
	return cache.Fetch(ctx, s.cache, key, SeriesTTL, func(ctx context.Context) (*models.Series, error) {
		bars, err := fetch(ctx, ticker, date)
		if err != nil {
			return nil, err
		}
		return &models.Series{Ticker: ticker.Code, Source: source, Bars: bars}, nil
	})
}

func (s *Service) fromEOD(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Bar, error) {
	rows, err := s.eod.GetEOD(ctx, ticker.EODHDSymbol(), eodhd.WithDateRange(date.Add(-seriesSpan), date))
	if err != nil {
		return nil, fmt.Errorf("eodhd: %w", err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, models.Bar{
			Date:     r.Date,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			AdjClose: r.AdjustedClose,
			Volume:   r.Volume,
		})
	}
	return bars, nil
}

func (s *Service) fromChart(ctx context.Context, ticker common.Ticker, date time.Time) ([]models.Bar, error) {
	bars, err := s.chart.GetHistory(ctx, ticker.YahooSymbol(), date.Add(-seriesSpan))
	if err != nil {
		return nil, fmt.Errorf("yahoo: %w", err)
	}
	return bars, nil
}

// sliceTo keeps rows on or before date, sorted newest first
func sliceTo(bars []models.Bar, date time.Time) []models.Bar {
	day := common.FormatDate(date)
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if common.FormatDate(b.Date) <= day {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Compute derives the metric set from a newest-first series. Fewer than
// MinRows rows returns ErrNoData.
func Compute(bars []models.Bar) (*models.MomentumMetrics, error) {
	if len(bars) < MinRows {
		return nil, fmt.Errorf("%d rows: %w", len(bars), ErrNoData)
	}

	m := &models.MomentumMetrics{
		AsOf:        common.FormatDate(bars[0].Date),
		Close:       bars[0].Close,
		Return1M:    PctChange(bars, Offset1M),
		Return3M:    PctChange(bars, Offset3M),
		Return6M:    PctChange(bars, Offset6M),
		Return12M:   PctChange(bars, Offset12M),
		SMA50:       SMA(bars, 50),
		SMA200:      SMA(bars, 200),
		RSI14:       RSI(bars),
		ATR14:       ATR(bars),
		VolumeRatio: VolumeRatio(bars),
	}
	m.Trend = Trend(m.Close, m.SMA50, m.SMA200, m.Return3M)
	m.Score = Score(m)
	return m, nil
}
