package pricetarget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/fallback"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

type fakeProvider struct {
	name  string
	pt    *models.PriceTarget
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) PriceTarget(ctx context.Context, ticker common.Ticker) (*models.PriceTarget, error) {
	f.calls++
	return f.pt, f.err
}

func ptr(v float64) *float64 { return &v }

func newService(providers ...Provider) *Service {
	logger := arbor.NewLogger()
	return NewService(cache.NewService(memory.NewCacheStorage(), logger), logger, providers...)
}

func TestComplete_MeanOnlyBand(t *testing.T) {
	out := Complete(&models.PriceTarget{TargetMean: ptr(229.67)}, 188.15)

	require.NotNil(t, out.TargetHigh)
	require.NotNil(t, out.TargetLow)
	assert.Equal(t, 264.12, *out.TargetHigh)
	assert.Equal(t, 195.22, *out.TargetLow)
	assert.Equal(t, 229.67, *out.TargetMean)
	assert.Nil(t, out.TargetMedian)
}

func TestComplete_Rules(t *testing.T) {
	tests := []struct {
		name     string
		in       models.PriceTarget
		price    float64
		wantHigh *float64
		wantLow  *float64
		wantMean *float64
	}{
		{
			name:     "median stands in for mean",
			in:       models.PriceTarget{TargetMedian: ptr(100)},
			wantHigh: ptr(115),
			wantLow:  ptr(85),
			wantMean: ptr(100),
		},
		{
			name:     "high only with mean",
			in:       models.PriceTarget{TargetHigh: ptr(200), TargetMean: ptr(150)},
			wantHigh: ptr(200),
			wantLow:  ptr(135),
			wantMean: ptr(150),
		},
		{
			name:     "high only without mean",
			in:       models.PriceTarget{TargetHigh: ptr(110)},
			wantHigh: ptr(110),
			wantLow:  ptr(100),
		},
		{
			name:     "low only with mean",
			in:       models.PriceTarget{TargetLow: ptr(80), TargetMean: ptr(100)},
			wantHigh: ptr(110),
			wantLow:  ptr(80),
			wantMean: ptr(100),
		},
		{
			name:     "low only without mean",
			in:       models.PriceTarget{TargetLow: ptr(100)},
			wantHigh: ptr(110),
			wantLow:  ptr(100),
		},
		{
			name:     "high below price is clamped",
			in:       models.PriceTarget{TargetHigh: ptr(100), TargetLow: ptr(80)},
			price:    120,
			wantHigh: ptr(126),
			wantLow:  ptr(80),
		},
		{
			name:     "low above price is clamped",
			in:       models.PriceTarget{TargetHigh: ptr(150), TargetLow: ptr(130)},
			price:    120,
			wantHigh: ptr(150),
			wantLow:  ptr(114),
		},
		{
			name:     "rounds to cents",
			in:       models.PriceTarget{TargetHigh: ptr(101.005), TargetLow: ptr(90.004)},
			wantHigh: ptr(101.01),
			wantLow:  ptr(90),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			out := Complete(&in, tt.price)
			assert.Equal(t, tt.wantHigh, out.TargetHigh)
			assert.Equal(t, tt.wantLow, out.TargetLow)
			assert.Equal(t, tt.wantMean, out.TargetMean)
		})
	}
}

func TestComplete_Nil(t *testing.T) {
	assert.Nil(t, Complete(nil, 100))

	out := Complete(&models.PriceTarget{Source: "finnhub"}, 100)
	assert.Nil(t, out.TargetHigh)
	assert.Nil(t, out.TargetLow)
	assert.Equal(t, "finnhub", out.Source)
}

func TestAggregate_FirstSuccessShortCircuits(t *testing.T) {
	empty := &fakeProvider{name: "finnhub", pt: &models.PriceTarget{}}
	yahoo := &fakeProvider{name: "yahoo", pt: &models.PriceTarget{TargetMean: ptr(229.67)}}
	eodhd := &fakeProvider{name: "eodhd", pt: &models.PriceTarget{TargetMean: ptr(1)}}
	svc := newService(empty, yahoo, eodhd)

	out, err := svc.Aggregate(context.Background(), common.ParseTicker("NVDA"), 188.15)
	require.NoError(t, err)

	assert.Equal(t, "yahoo", out.Source)
	assert.Equal(t, 264.12, *out.TargetHigh)
	assert.Equal(t, 195.22, *out.TargetLow)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, yahoo.calls)
	assert.Equal(t, 0, eodhd.calls)
}

func TestAggregate_Cached(t *testing.T) {
	primary := &fakeProvider{name: "finnhub", pt: &models.PriceTarget{TargetMean: ptr(100)}}
	svc := newService(primary)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, common.ParseTicker("AAPL"), 0)
	require.NoError(t, err)
	out, err := svc.Aggregate(ctx, common.ParseTicker("AAPL"), 120)
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 126.0, *out.TargetHigh, "clamp applies to the cached answer")
}

func TestAggregate_AllFail(t *testing.T) {
	svc := newService(
		&fakeProvider{name: "finnhub", err: errors.New("finnhub: status 403")},
		&fakeProvider{name: "yahoo", err: errors.New("yahoo: crumb rejected")},
		&fakeProvider{name: "eodhd", pt: &models.PriceTarget{}},
	)

	_, err := svc.Aggregate(context.Background(), common.ParseTicker("NVDA"), 188.15)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "crumb rejected")
	assert.Contains(t, err.Error(), "eodhd: no data returned")

	var exhausted *fallback.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Attempts, 3)
}
