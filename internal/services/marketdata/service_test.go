package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/eodhd"
	"github.com/ternarybob/tickerlens/internal/finnhub"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

var now = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

type fakeFinnhub struct {
	recsErr  error
	quoteErr error
	price    float64
}

func (f *fakeFinnhub) GetRecommendations(ctx context.Context, symbol string) ([]finnhub.Recommendation, error) {
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	return []finnhub.Recommendation{{Period: "2024-06-01", Buy: 20, Hold: 8, Symbol: symbol}}, nil
}

func (f *fakeFinnhub) GetEarnings(ctx context.Context, symbol string) ([]finnhub.Earnings, error) {
	actual := 1.53
	return []finnhub.Earnings{{Period: "2024-03-31", Actual: &actual}}, nil
}

func (f *fakeFinnhub) GetQuote(ctx context.Context, symbol string) (*finnhub.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &finnhub.Quote{Current: f.price, PreviousClose: f.price - 1, Timestamp: now.Unix()}, nil
}

type fakeRealTime struct {
	calls int
}

func (f *fakeRealTime) GetRealTimeQuote(ctx context.Context, symbol string) (*eodhd.RealTimeQuote, error) {
	f.calls++
	return &eodhd.RealTimeQuote{Code: symbol, Close: 210.5, PreviousClose: 209}, nil
}

type fakePriceTargets struct {
	gotPrice float64
}

func (f *fakePriceTargets) Aggregate(ctx context.Context, ticker common.Ticker, currentPrice float64) (*models.PriceTarget, error) {
	f.gotPrice = currentPrice
	mean := 250.0
	return &models.PriceTarget{Source: "finnhub", TargetMean: &mean}, nil
}

type fakeMomentum struct {
	err error
}

func (f *fakeMomentum) Metrics(ctx context.Context, ticker common.Ticker, date time.Time) (*models.MomentumMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.MomentumMetrics{AsOf: common.FormatDate(date), Score: 64}, nil
}

type fakeHistory struct {
	err error
}

func (f *fakeHistory) Resolve(ctx context.Context, ticker common.Ticker, date time.Time) (*models.HistoricalPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.HistoricalPrice{Price: 180.25, Date: "2024-01-05", Source: "eodhd"}, nil
}

type fixture struct {
	finnhub  *fakeFinnhub
	realtime *fakeRealTime
	targets  *fakePriceTargets
	momentum *fakeMomentum
	history  *fakeHistory
}

func newFixture() *fixture {
	return &fixture{
		finnhub:  &fakeFinnhub{price: 212.49},
		realtime: &fakeRealTime{},
		targets:  &fakePriceTargets{},
		momentum: &fakeMomentum{},
		history:  &fakeHistory{},
	}
}

func (f *fixture) service() *Service {
	logger := arbor.NewLogger()
	svc := NewService(Dependencies{
		Finnhub:      f.finnhub,
		RealTime:     f.realtime,
		PriceTargets: f.targets,
		Momentum:     f.momentum,
		History:      f.history,
	}, cache.NewService(memory.NewCacheStorage(), logger), logger)
	svc.now = func() time.Time { return now }
	return svc
}

func TestFetch_CurrentDateUsesRealTime(t *testing.T) {
	f := newFixture()

	md := f.service().Fetch(context.Background(), common.ParseTicker("AAPL"), common.Today(now))

	require.True(t, md.Quote.OK())
	assert.Equal(t, "finnhub", md.Quote.Value.Source)
	assert.Equal(t, 212.49, md.Price)
	assert.Equal(t, models.PriceSourceRealTime, md.PriceSource)
	assert.Equal(t, "2024-06-14", md.PriceDate)
	assert.Equal(t, 212.49, f.targets.gotPrice)
	assert.True(t, md.Recommendations.OK())
	assert.Len(t, md.Earnings.Value, 1)
	assert.Equal(t, 64, md.Momentum.Value.Score)
	assert.Zero(t, f.realtime.calls)
}

func TestFetch_HistoricalDateUsesResolvedClose(t *testing.T) {
	f := newFixture()

	md := f.service().Fetch(context.Background(), common.ParseTicker("AAPL"), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 180.25, md.Price)
	assert.Equal(t, "eodhd", md.PriceSource)
	assert.Equal(t, "2024-01-05", md.PriceDate)
}

func TestFetch_HistoricalFailureFallsBackToQuote(t *testing.T) {
	f := newFixture()
	f.history.err = errors.New("all providers failed")

	md := f.service().Fetch(context.Background(), common.ParseTicker("AAPL"), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 212.49, md.Price)
	assert.Equal(t, models.PriceSourceRealTimeFallback, md.PriceSource)
}

func TestFetch_FieldsSettleIndependently(t *testing.T) {
	f := newFixture()
	f.finnhub.recsErr = errors.New("status 403")
	f.finnhub.quoteErr = errors.New("timeout")
	f.momentum.err = errors.New("insufficient history")

	md := f.service().Fetch(context.Background(), common.ParseTicker("AAPL"), common.Today(now))

	require.False(t, md.Recommendations.OK())
	assert.Contains(t, md.Recommendations.Err.Error, "status 403")
	assert.Equal(t, "finnhub", md.Recommendations.Err.Source)
	assert.True(t, md.Earnings.OK())

	require.True(t, md.Quote.OK(), "quote falls back to the real-time provider")
	assert.Equal(t, "eodhd", md.Quote.Value.Source)
	assert.Equal(t, 210.5, md.Price)

	require.False(t, md.Momentum.OK())
	assert.Equal(t, "momentum", md.Momentum.Err.Source)
	assert.True(t, md.PriceTarget.OK())
}

func TestFetch_AnalystDataCached(t *testing.T) {
	f := newFixture()
	svc := f.service()

	first := svc.Fetch(context.Background(), common.ParseTicker("AAPL"), common.Today(now))
	require.True(t, first.Recommendations.OK())

	f.finnhub.recsErr = errors.New("down")
	second := svc.Fetch(context.Background(), common.ParseTicker("AAPL"), common.Today(now))
	assert.True(t, second.Recommendations.OK())
}
