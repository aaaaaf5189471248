package pricetarget

import (
	"context"
	"fmt"

	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/finnhub"
	"github.com/ternarybob/tickerlens/internal/models"
)

// FinnhubAPI is the subset of the Finnhub client used here
type FinnhubAPI interface {
	GetPriceTarget(ctx context.Context, symbol string) (*finnhub.PriceTarget, error)
}

// YahooAPI is the subset of the Yahoo client used here
type YahooAPI interface {
	GetPriceTarget(ctx context.Context, symbol string) (*models.PriceTarget, error)
}

// FundamentalsAPI is the subset of the EODHD client used here
type FundamentalsAPI interface {
	GetFundamentals(ctx context.Context, symbol string, sections ...string) (*eodhd.FundamentalsResponse, error)
}

type finnhubProvider struct{ api FinnhubAPI }

// NewFinnhubProvider adapts the primary market-data provider
func NewFinnhubProvider(api FinnhubAPI) Provider { return finnhubProvider{api: api} }

func (finnhubProvider) Name() string { return "finnhub" }

func (p finnhubProvider) PriceTarget(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error) {
	pt, err := p.api.GetPriceTarget(ctx, ticker.Code)
	if err != nil {
		return nil, fmt.Errorf("finnhub: %w", err)
	}
	return &models.PriceTarget{
		TargetHigh:   models.Float(pt.TargetHigh),
		TargetLow:    models.Float(pt.TargetLow),
		TargetMean:   models.Float(pt.TargetMean),
		TargetMedian: models.Float(pt.TargetMedian),
	}, nil
}

type yahooProvider struct{ api YahooAPI }

// NewYahooProvider adapts the secondary quote provider
func NewYahooProvider(api YahooAPI) Provider { return yahooProvider{api: api} }

func (yahooProvider) Name() string { return "yahoo" }

func (p yahooProvider) PriceTarget(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error) {
	pt, err := p.api.GetPriceTarget(ctx, ticker.YahooSymbol())
	if err != nil {
		return nil, fmt.Errorf("yahoo: %w", err)
	}
	return pt, nil
}

type fundamentalsProvider struct{ api FundamentalsAPI }

// NewFundamentalsProvider adapts the EODHD fundamentals analyst block
func NewFundamentalsProvider(api FundamentalsAPI) Provider { return fundamentalsProvider{api: api} }

func (fundamentalsProvider) Name() string { return "eodhd" }

func (p fundamentalsProvider) PriceTarget(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error) {
	f, err := p.api.GetFundamentals(ctx, ticker.EODHDSymbol(), "AnalystRatings", "Highlights")
	if err != nil {
		return nil, fmt.Errorf("eodhd: %w", err)
	}

	var mean float64
	if f.AnalystRatings != nil {
		mean = f.AnalystRatings.TargetPrice
	}
	if mean <= 0 && f.Highlights != nil {
		mean = f.Highlights.WallStreetTargetPrice
	}
	return &models.PriceTarget{TargetMean: models.Float(mean)}, nil
}
