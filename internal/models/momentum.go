package models

// Trend classification labels
const (
	TrendStrong  = "strong"
	TrendWeak    = "weak"
	TrendNeutral = "neutral"
)

// MomentumMetrics is the indicator set computed from a daily series.
// Optional returns are nil when the series is too short for the offset.
type MomentumMetrics struct {
	AsOf          string   `json:"asOf"`
	Close         float64  `json:"close"`
	Return1M      *float64 `json:"return1m"`
	Return3M      *float64 `json:"return3m"`
	Return6M      *float64 `json:"return6m"`
	Return12M     *float64 `json:"return12m"`
	SMA50         *float64 `json:"sma50"`
	SMA200        *float64 `json:"sma200"`
	RSI14         float64  `json:"rsi14"`
	ATR14         float64  `json:"atr14"`
	VolumeRatio   *float64 `json:"volumeRatio"`
	Trend         string   `json:"trend"`
	Score         int      `json:"score"`
	Source        string   `json:"source"`
	SectorETF     string   `json:"sectorEtf"`
	SectorReturn  *float64 `json:"sectorReturn3m"`
	RelativeToETF *float64 `json:"relativeToSector3m"`
}
