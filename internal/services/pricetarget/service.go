// Package pricetarget resolves an analyst consensus price target through
// an ordered provider chain and completes partial answers.
package pricetarget

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/fallback"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
)

// CacheTTL is how long a provider answer is reused
const CacheTTL = 6 * time.Hour

// Provider is one price-target source
type Provider interface {
	Name() string
	PriceTarget(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error)
}

// Service aggregates price targets
type Service struct {
	providers []Provider
	cache     interfaces.CacheService
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a price-target aggregator trying providers in order
func NewService(cacheService interfaces.CacheService, logger arbor.ILogger, providers ...Provider) *Service {
	return &Service{
		providers: providers,
		cache:     cacheService,
		logger:    logger,
		now:       time.Now,
	}
}

// Aggregate returns the first provider answer with at least one numeric
// field, completed and clamped against currentPrice (zero skips the
// clamp). When every provider fails the error lists each failure.
func (s *Service) Aggregate(ctx context.Context, ticker common.Ticker, currentPrice float64) (*models.PriceTarget, error) {
	key := models.NewFetchKey(models.KindPriceTarget, ticker.Code, common.Today(s.now()), "").String()

	raw, err := cache.Fetch(ctx, s.cache, key, CacheTTL, func(ctx context.Context) (*models.PriceTarget, error) {
		return s.resolve(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}

	return Complete(raw, currentPrice), nil
}

func (s *Service) resolve(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error) {
	steps := make([]fallback.Step[*models.PriceTarget], 0, len(s.providers))
	for _, p := range s.providers {
		p := p
		steps = append(steps, fallback.Step[*models.PriceTarget]{
			Name: p.Name(),
			Call: func(ctx context.Context) (*models.PriceTarget, error) {
				return p.PriceTarget(ctx, ticker)
			},
		})
	}

	result, err := fallback.FirstSuccess(ctx, "price target", steps, func(pt *models.PriceTarget) bool {
		return pt.HasAny()
	})
	for _, a := range result.Failed {
		s.logger.Debug().Str("ticker", ticker.Code).Str("provider", a.Provider).Err(a.Err).Msg("Price target provider failed")
	}
	if err != nil {
		s.logger.Warn().Str("ticker", ticker.Code).Err(err).Msg("Price target unavailable")
		return nil, err
	}

	result.Value.Source = result.Provider
	s.logger.Debug().Str("ticker", ticker.Code).Str("provider", result.Provider).Msg("Price target resolved")
	return result.Value, nil
}
