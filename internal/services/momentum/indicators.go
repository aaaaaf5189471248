package momentum

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/ternarybob/tickerlens/internal/models"
	"gonum.org/v1/gonum/stat"
)

// Trading-day offsets for the return windows
const (
	Offset1M  = 21
	Offset3M  = 63
	Offset6M  = 126
	Offset12M = 252

	rsiPeriod = 14
	atrPeriod = 14
)

// PctChange returns close[0]/close[n] - 1 over a newest-first series, or
// nil when the series has fewer than n+1 rows
func PctChange(bars []models.Bar, n int) *float64 {
	if n <= 0 || len(bars) < n+1 || bars[n].Close == 0 {
		return nil
	}
	v := bars[0].Close/bars[n].Close - 1
	return &v
}

// SMA returns the mean of the first period closes, or nil when short
func SMA(bars []models.Bar, period int) *float64 {
	if period <= 0 || len(bars) < period {
		return nil
	}
	v := stat.Mean(closes(bars[:period]), nil)
	return &v
}

// RSI computes RSI(14) from the 14 most recent day-over-day changes.
// An average loss of zero yields 100.
func RSI(bars []models.Bar) float64 {
	if len(bars) < rsiPeriod+1 {
		return 50
	}

	window := oldestFirst(bars[:rsiPeriod+1])
	values := closes(window)

	var loss float64
	for i := 1; i < len(values); i++ {
		if d := values[i] - values[i-1]; d < 0 {
			loss -= d
		}
	}
	if loss == 0 {
		return 100
	}

	out := talib.Rsi(values, rsiPeriod)
	v := out[len(out)-1]
	if math.IsNaN(v) {
		return 50
	}
	return v
}

// ATR returns the mean true range over the 14 most recent rows
func ATR(bars []models.Bar) float64 {
	if len(bars) < atrPeriod+1 {
		return 0
	}

	window := oldestFirst(bars[:atrPeriod+1])
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, b := range window {
		highs[i] = b.High
		lows[i] = b.Low
	}

	// The first true range has no previous close and is skipped
	tr := talib.TRange(highs, lows, closes(window))
	return stat.Mean(tr[1:], nil)
}

// VolumeRatio is the 5-day average volume over the 30-day average
func VolumeRatio(bars []models.Bar) *float64 {
	if len(bars) < 30 {
		return nil
	}
	long := stat.Mean(volumes(bars[:30]), nil)
	if long == 0 {
		return nil
	}
	v := stat.Mean(volumes(bars[:5]), nil) / long
	return &v
}

// Trend classifies price against both moving averages and the 3-month return
func Trend(price float64, sma50, sma200, return3M *float64) string {
	if sma50 == nil || sma200 == nil || return3M == nil {
		return models.TrendNeutral
	}
	switch {
	case price > *sma50 && price > *sma200 && *return3M > 0.10:
		return models.TrendStrong
	case price < *sma50 && price < *sma200 && *return3M < -0.05:
		return models.TrendWeak
	default:
		return models.TrendNeutral
	}
}

// Score combines the indicators into a 0..100 composite. Each term is
// clamped on its own before the sum is clamped.
func Score(m *models.MomentumMetrics) int {
	score := 50.0

	if m.Return3M != nil {
		score += clamp(*m.Return3M*100/2, 15)
	}
	if m.Return6M != nil {
		score += clamp(*m.Return6M*100/3, 10)
	}
	if m.Return12M != nil {
		score += clamp(*m.Return12M*100/4, 10)
	}
	score += clamp((m.RSI14-50)/2, 10)
	if m.VolumeRatio != nil {
		score += clamp((*m.VolumeRatio-1)*10, 5)
	}
	score += maBonus(m.Close, m.SMA50)
	score += maBonus(m.Close, m.SMA200)

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func maBonus(price float64, sma *float64) float64 {
	switch {
	case sma == nil:
		return 0
	case price > *sma:
		return 5
	case price < *sma:
		return -5
	default:
		return 0
	}
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

func closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// oldestFirst returns a reversed copy of a newest-first window
func oldestFirst(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		out[len(bars)-1-i] = b
	}
	return out
}
