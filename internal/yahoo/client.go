// Package yahoo wraps go-yfinance as the secondary quote, price-target and
// chart provider.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/models"
	yfmodels "github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// DefaultTimeout bounds each call; go-yfinance takes no context so the
// bound is enforced around the call.
const DefaultTimeout = 15 * time.Second

// ErrNoPrice is returned when Yahoo answers without a usable price
var ErrNoPrice = errors.New("yahoo returned no price")

// Client fetches Yahoo Finance data
type Client struct {
	logger  arbor.ILogger
	timeout time.Duration
	now     func() time.Time
}

// NewClient creates a new Yahoo client
func NewClient(logger arbor.ILogger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{logger: logger, timeout: timeout, now: time.Now}
}

// withTicker opens a ticker session and runs fn under the client timeout.
// When ctx ends first the call is abandoned and its result discarded.
func withTicker[T any](ctx context.Context, c *Client, symbol string, fn func(t *ticker.Ticker) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		var o outcome
		t, err := ticker.New(symbol)
		if err != nil {
			o.err = fmt.Errorf("failed to create ticker: %w", err)
			done <- o
			return
		}
		defer t.Close()
		o.value, o.err = fn(t)
		done <- o
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("yahoo %s: %w", symbol, ctx.Err())
	}
}

// GetQuote returns the live quote. Change is derived from the previous
// close reported by the info endpoint.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return withTicker(ctx, c, symbol, func(t *ticker.Ticker) (*models.Quote, error) {
		q, err := t.Quote()
		if err != nil {
			return nil, fmt.Errorf("failed to get quote: %w", err)
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			return nil, ErrNoPrice
		}

		quote := &models.Quote{
			Current:   q.RegularMarketPrice,
			Timestamp: c.now().UTC(),
			Source:    "yahoo",
		}

		if info, err := t.Info(); err == nil && info != nil && info.RegularMarketPreviousClose > 0 {
			quote.PreviousClose = info.RegularMarketPreviousClose
			quote.Change = quote.Current - quote.PreviousClose
			quote.ChangePercent = quote.Change / quote.PreviousClose * 100
		}
		return quote, nil
	})
}

// GetPriceTarget returns the analyst price target consensus
func (c *Client) GetPriceTarget(ctx context.Context, symbol string) (*models.PriceTarget, error) {
	return withTicker(ctx, c, symbol, func(t *ticker.Ticker) (*models.PriceTarget, error) {
		pt, err := t.AnalystPriceTargets()
		if err != nil {
			return nil, fmt.Errorf("failed to get price targets: %w", err)
		}
		if pt == nil {
			return nil, ErrNoPrice
		}
		return &models.PriceTarget{
			Source:           "yahoo",
			TargetHigh:       models.Float(pt.High),
			TargetLow:        models.Float(pt.Low),
			TargetMean:       models.Float(pt.Mean),
			TargetMedian:     models.Float(pt.Median),
			NumberOfAnalysts: pt.NumberOfAnalysts,
		}, nil
	})
}

// GetHistory returns daily bars covering at least since..today, oldest first
func (c *Client) GetHistory(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error) {
	params := yfmodels.HistoryParams{
		Period:     historyPeriod(c.now().Sub(since)),
		Interval:   "1d",
		AutoAdjust: true,
	}

	return withTicker(ctx, c, symbol, func(t *ticker.Ticker) ([]models.Bar, error) {
		bars, err := t.History(params)
		if err != nil {
			return nil, fmt.Errorf("failed to get history: %w", err)
		}

		out := make([]models.Bar, 0, len(bars))
		for _, bar := range bars {
			if bar.Close <= 0 {
				continue
			}
			out = append(out, models.Bar{
				Date:     bar.Date.UTC(),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}
		return out, nil
	})
}

// historyPeriod picks the smallest Yahoo range covering span
func historyPeriod(span time.Duration) string {
	days := int(span.Hours() / 24)
	switch {
	case days <= 365:
		return "1y"
	case days <= 2*365:
		return "2y"
	case days <= 5*365:
		return "5y"
	case days <= 10*365:
		return "10y"
	default:
		return "max"
	}
}
