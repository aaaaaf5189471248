package momentum

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
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

var baseline = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

// risingSeries returns n newest-first daily bars ending at baseline whose
// close increases by step each day
func risingSeries(n int, step float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(n-1-i)*step
		bars[i] = models.Bar{
			Date:   baseline.AddDate(0, 0, -i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func TestCompute_RequiresSixtyRows(t *testing.T) {
	_, err := Compute(risingSeries(59, 1))
	assert.True(t, errors.Is(err, ErrNoData))

	m, err := Compute(risingSeries(60, 1))
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestRSI_NonDecreasingIsHundred(t *testing.T) {
	assert.Equal(t, 100.0, RSI(risingSeries(15, 1)))
	assert.Equal(t, 100.0, RSI(risingSeries(15, 0)))
}

func TestRSI_Mixed(t *testing.T) {
	bars := risingSeries(15, 1)
	// One down day in the window
	bars[3].Close = bars[4].Close - 2

	rsi := RSI(bars)
	assert.Greater(t, rsi, 0.0)
	assert.Less(t, rsi, 100.0)
}

func TestIndicators(t *testing.T) {
	bars := risingSeries(300, 1)

	r := PctChange(bars, 1)
	require.NotNil(t, r)
	assert.InDelta(t, 399.0/398.0-1, *r, 1e-12)
	assert.Nil(t, PctChange(bars[:10], 10))

	sma := SMA(bars, 50)
	require.NotNil(t, sma)
	assert.InDelta(t, 374.5, *sma, 1e-9)
	assert.Nil(t, SMA(bars[:49], 50))

	// High-low range and the gap to the previous close are both 2
	assert.InDelta(t, 2.0, ATR(bars), 1e-9)

	vr := VolumeRatio(bars)
	require.NotNil(t, vr)
	assert.InDelta(t, 1.0, *vr, 1e-9)
}

func TestCompute_StrongTrend(t *testing.T) {
	m, err := Compute(risingSeries(300, 1))
	require.NoError(t, err)

	assert.Equal(t, models.TrendStrong, m.Trend)
	assert.Equal(t, "2024-01-05", m.AsOf)
	assert.Equal(t, 100.0, m.RSI14)
	assert.GreaterOrEqual(t, m.Score, 50)
	assert.LessOrEqual(t, m.Score, 100)
}

func TestScore_Clamped(t *testing.T) {
	big := 5.0
	m := &models.MomentumMetrics{Return3M: &big, Return6M: &big, Return12M: &big, RSI14: 100, Close: 10}
	// 50 + 15 + 10 + 10 + 10
	assert.Equal(t, 95, Score(m))

	small := -5.0
	sma := 20.0
	m = &models.MomentumMetrics{Return3M: &small, Return6M: &small, Return12M: &small, RSI14: 0, Close: 10, SMA50: &sma, SMA200: &sma}
	assert.Equal(t, 0, Score(m))
}

func TestTrend(t *testing.T) {
	ma := 100.0
	up, down, flat := 0.2, -0.1, 0.0

	assert.Equal(t, models.TrendStrong, Trend(110, &ma, &ma, &up))
	assert.Equal(t, models.TrendWeak, Trend(90, &ma, &ma, &down))
	assert.Equal(t, models.TrendNeutral, Trend(110, &ma, &ma, &flat))
	assert.Equal(t, models.TrendNeutral, Trend(110, &ma, nil, &up))
}

func TestSectorTable(t *testing.T) {
	table := DefaultSectorTable()
	assert.Equal(t, "XLK", table.Basket("aapl"))
	assert.Equal(t, "XLF", table.Basket("BRK.B"))
	assert.Equal(t, "SPY", table.Basket("ZZZZ"))
}

type fakeEOD struct {
	rows  eodhd.EODResponse
	err   error
	calls int
}

func (f *fakeEOD) GetEOD(ctx context.Context, symbol string, opts ...eodhd.QueryOption) (eodhd.EODResponse, error) {
	f.calls++
	return f.rows, f.err
}

type fakeChart struct {
	bars  map[string][]models.Bar
	err   error
	calls int
}

func (f *fakeChart) GetHistory(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func newService(eod EODAPI, chart ChartAPI) *Service {
	logger := arbor.NewLogger()
	return NewService(eod, chart, cache.NewService(memory.NewCacheStorage(), logger), nil, logger)
}

func TestMetrics_FallsBackToChartAndAttachesSector(t *testing.T) {
	eod := &fakeEOD{err: errors.New("status 402")}
	future := risingSeries(5, 1)
	for i := range future {
		future[i].Date = baseline.AddDate(0, 0, i+1)
	}
	chart := &fakeChart{bars: map[string][]models.Bar{
		"AAPL": append(risingSeries(300, 1), future...),
		"XLK":  risingSeries(300, 0.5),
	}}
	svc := newService(eod, chart)

	m, err := svc.Metrics(context.Background(), common.ParseTicker("AAPL"), baseline)
	require.NoError(t, err)

	assert.Equal(t, "yahoo", m.Source)
	assert.Equal(t, "2024-01-05", m.AsOf, "rows after the baseline are dropped")
	assert.Equal(t, "XLK", m.SectorETF)
	require.NotNil(t, m.SectorReturn)
	require.NotNil(t, m.RelativeToETF)
}

func TestMetrics_SectorFailureSwallowed(t *testing.T) {
	chart := &fakeChart{bars: map[string][]models.Bar{"AAPL": risingSeries(120, 1)}}
	svc := newService(nil, chart)

	m, err := svc.Metrics(context.Background(), common.ParseTicker("AAPL"), baseline)
	require.NoError(t, err)
	assert.Nil(t, m.SectorReturn)
}

func TestMetrics_ShortHistory(t *testing.T) {
	chart := &fakeChart{bars: map[string][]models.Bar{"AAPL": risingSeries(30, 1)}}
	svc := newService(nil, chart)

	m, err := svc.Metrics(context.Background(), common.ParseTicker("AAPL"), baseline)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, ErrNoData))
}
