// Package marketdata settles the market-data stage of an analysis: analyst
// recommendations, reported earnings, the live quote, momentum, the price
// target and the baseline price. Every field resolves independently.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/fallback"
	"github.com/ternarybob/tickerlens/internal/finnhub"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"golang.org/x/sync/errgroup"
)

// AnalystTTL applies to recommendations and earnings
const AnalystTTL = 6 * time.Hour

// FinnhubAPI is the primary market-data provider
type FinnhubAPI interface {
	GetRecommendations(ctx context.Context, symbol string) ([]finnhub.Recommendation, error)
	GetEarnings(ctx context.Context, symbol string) ([]finnhub.Earnings, error)
	GetQuote(ctx context.Context, symbol string) (*finnhub.Quote, error)
}

// RealTimeAPI is the EODHD delayed quote
type RealTimeAPI interface {
	GetRealTimeQuote(ctx context.Context, symbol string) (*eodhd.RealTimeQuote, error)
}

// QuoteAPI is the secondary quote provider
type QuoteAPI interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// PriceTargets completes the analyst consensus against a price
type PriceTargets interface {
	Aggregate(ctx context.Context, ticker common.Ticker, currentPrice float64) (*models.PriceTarget, error)
}

// Momentum computes indicator metrics as of a date
type Momentum interface {
	Metrics(ctx context.Context, ticker common.Ticker, date time.Time) (*models.MomentumMetrics, error)
}

// HistoricalPrices resolves a close on or just before a date
type HistoricalPrices interface {
	Resolve(ctx context.Context, ticker common.Ticker, date time.Time) (*models.HistoricalPrice, error)
}

// Service gathers market data
type Service struct {
	finnhub      FinnhubAPI
	realtime     RealTimeAPI
	quotes       QuoteAPI
	priceTargets PriceTargets
	momentum     Momentum
	history      HistoricalPrices
	cache        interfaces.CacheService
	logger       arbor.ILogger
	now          func() time.Time
}

// Dependencies groups the collaborators of NewService
type Dependencies struct {
	Finnhub      FinnhubAPI
	RealTime     RealTimeAPI
	Quotes       QuoteAPI
	PriceTargets PriceTargets
	Momentum     Momentum
	History      HistoricalPrices
}

// NewService creates a market-data service
func NewService(deps Dependencies, cacheService interfaces.CacheService, logger arbor.ILogger) *Service {
	return &Service{
		finnhub:      deps.Finnhub,
		realtime:     deps.RealTime,
		quotes:       deps.Quotes,
		priceTargets: deps.PriceTargets,
		momentum:     deps.Momentum,
		history:      deps.History,
		cache:        cacheService,
		logger:       logger,
		now:          time.Now,
	}
}

// Fetch settles every market-data field for ticker on date. It never
// fails; unavailable fields carry a FieldError.
func (s *Service) Fetch(ctx context.Context, ticker common.Ticker, date time.Time) models.MarketData {
	var (
		md       models.MarketData
		histErr  error
		hist     *models.HistoricalPrice
		historic = common.IsHistorical(date, s.now())
	)

	var g errgroup.Group
	g.Go(func() error {
		md.Recommendations = settle(s.recommendations(ctx, ticker))
		markSource(md.Recommendations.Err, "finnhub")
		return nil
	})
	g.Go(func() error {
		md.Earnings = settle(s.earnings(ctx, ticker))
		markSource(md.Earnings.Err, "finnhub")
		return nil
	})
	g.Go(func() error {
		md.Quote = settle(s.quote(ctx, ticker))
		markSource(md.Quote.Err, "quote")
		return nil
	})
	g.Go(func() error {
		md.Momentum = settle(s.momentum.Metrics(ctx, ticker, date))
		markSource(md.Momentum.Err, "momentum")
		return nil
	})
	if historic {
		g.Go(func() error {
			hist, histErr = s.history.Resolve(ctx, ticker, date)
			return nil
		})
	}
	_ = g.Wait()

	s.applyPrice(&md, ticker, date, historic, hist, histErr)

	currentPrice := md.Price
	if md.Quote.OK() && md.Quote.Value != nil {
		currentPrice = md.Quote.Value.Current
	}
	md.PriceTarget = settle(s.priceTargets.Aggregate(ctx, ticker, currentPrice))
	markSource(md.PriceTarget.Err, "pricetarget")

	s.logger.Debug().
		Str("ticker", ticker.Code).
		Str("date", common.FormatDate(date)).
		Str("price_source", md.PriceSource).
		Bool("quote", md.Quote.OK()).
		Bool("momentum", md.Momentum.OK()).
		Bool("price_target", md.PriceTarget.OK()).
		Msg("Market data settled")
	return md
}

// applyPrice sets the baseline price and its provenance
func (s *Service) applyPrice(md *models.MarketData, ticker common.Ticker, date time.Time, historic bool,
	hist *models.HistoricalPrice, histErr error) {

	if historic && histErr == nil && hist != nil {
		md.Price = hist.Price
		md.PriceDate = hist.Date
		md.PriceSource = hist.Source
		return
	}

	if historic {
		s.logger.Warn().
			Str("ticker", ticker.Code).
			Str("date", common.FormatDate(date)).
			Err(histErr).
			Msg("Historical price unavailable, using real-time quote")
	}

	if md.Quote.OK() && md.Quote.Value != nil {
		md.Price = md.Quote.Value.Current
		md.PriceDate = common.FormatDate(common.Today(s.now()))
		md.PriceSource = models.PriceSourceRealTime
		if historic {
			md.PriceSource = models.PriceSourceRealTimeFallback
		}
	}
}

func (s *Service) recommendations(ctx context.Context, ticker common.Ticker) ([]models.RecommendationTrend, error) {
	key := models.NewFetchKey(models.KindRecommends, ticker.Code, common.Today(s.now()), "").String()
	return cache.Fetch(ctx, s.cache, key, AnalystTTL, func(ctx context.Context) ([]models.RecommendationTrend, error) {
		recs, err := s.finnhub.GetRecommendations(ctx, ticker.Code)
		if err != nil {
			return nil, fmt.Errorf("finnhub: %w", err)
		}
		out := make([]models.RecommendationTrend, 0, len(recs))
		for _, r := range recs {
			out = append(out, models.RecommendationTrend{
				Period:     r.Period,
				StrongBuy:  r.StrongBuy,
				Buy:        r.Buy,
				Hold:       r.Hold,
				Sell:       r.Sell,
				StrongSell: r.StrongSell,
			})
		}
		return out, nil
	})
}

func (s *Service) earnings(ctx context.Context, ticker common.Ticker) ([]models.EarningsRecord, error) {
	key := models.NewFetchKey(models.KindEarnings, ticker.Code, common.Today(s.now()), "").String()
	return cache.Fetch(ctx, s.cache, key, AnalystTTL, func(ctx context.Context) ([]models.EarningsRecord, error) {
		quarters, err := s.finnhub.GetEarnings(ctx, ticker.Code)
		if err != nil {
			return nil, fmt.Errorf("finnhub: %w", err)
		}
		out := make([]models.EarningsRecord, 0, len(quarters))
		for _, q := range quarters {
			out = append(out, models.EarningsRecord{
				Period:          q.Period,
				Actual:          q.Actual,
				Estimate:        q.Estimate,
				Surprise:        q.Surprise,
				SurprisePercent: q.SurprisePercent,
			})
		}
		return out, nil
	})
}

// quote is not cached; it tries finnhub, then EODHD real-time, then yahoo
func (s *Service) quote(ctx context.Context, ticker common.Ticker) (*models.Quote, error) {
	steps := []fallback.Step[*models.Quote]{
		{Name: "finnhub", Call: func(ctx context.Context) (*models.Quote, error) {
			q, err := s.finnhub.GetQuote(ctx, ticker.Code)
			if err != nil {
				return nil, err
			}
			return &models.Quote{
				Current:       q.Current,
				Change:        q.Change,
				ChangePercent: q.PercentChange,
				High:          q.High,
				Low:           q.Low,
				Open:          q.Open,
				PreviousClose: q.PreviousClose,
				Timestamp:     time.Unix(q.Timestamp, 0).UTC(),
				Source:        "finnhub",
			}, nil
		}},
	}
	if s.realtime != nil {
		steps = append(steps, fallback.Step[*models.Quote]{Name: "eodhd", Call: func(ctx context.Context) (*models.Quote, error) {
			q, err := s.realtime.GetRealTimeQuote(ctx, ticker.EODHDSymbol())
			if err != nil {
				return nil, err
			}
			return &models.Quote{
				Current:       q.Close,
				Change:        q.Change,
				ChangePercent: q.ChangePercent,
				High:          q.High,
				Low:           q.Low,
				Open:          q.Open,
				PreviousClose: q.PreviousClose,
				Timestamp:     time.Unix(q.Timestamp, 0).UTC(),
				Source:        "eodhd",
			}, nil
		}})
	}
	if s.quotes != nil {
		steps = append(steps, fallback.Step[*models.Quote]{Name: "yahoo", Call: func(ctx context.Context) (*models.Quote, error) {
			return s.quotes.GetQuote(ctx, ticker.YahooSymbol())
		}})
	}

	res, err := fallback.FirstSuccess(ctx, "quote", steps, func(q *models.Quote) bool {
		return q != nil && q.Current > 0
	})
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func settle[T any](value T, err error) models.Field[T] {
	if err != nil {
		return models.Field[T]{Err: &models.FieldError{Error: err.Error()}}
	}
	return models.Field[T]{Value: value}
}

func markSource(fe *models.FieldError, source string) {
	if fe != nil {
		fe.Source = source
	}
}
