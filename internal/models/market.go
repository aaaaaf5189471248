package models

import "time"

// Quote is a live quote snapshot
type Quote struct {
	Current       float64   `json:"current"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// RecommendationTrend is one period of analyst buy/hold/sell counts
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// EarningsRecord is one reported quarter
type EarningsRecord struct {
	Period          string   `json:"period"`
	ReportDate      string   `json:"reportDate,omitempty"`
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	Surprise        *float64 `json:"surprise"`
	SurprisePercent *float64 `json:"surprisePercent"`
}

// FieldError marks a market-data field whose provider failed
type FieldError struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
}

// Field holds either a value or the error that prevented it
type Field[T any] struct {
	Value T           `json:"value,omitempty"`
	Err   *FieldError `json:"error,omitempty"`
}

// OK reports whether the field resolved
func (f Field[T]) OK() bool {
	return f.Err == nil
}

// HistoricalPrice is a point-in-time reference price
type HistoricalPrice struct {
	Price  float64 `json:"price"`
	Date   string  `json:"date"`
	Source string  `json:"source"`
}

// Price provenance labels
const (
	PriceSourceRealTime         = "real-time"
	PriceSourceRealTimeFallback = "real-time_fallback"
)

// MarketData is the settled result of the market-data stage
type MarketData struct {
	Recommendations Field[[]RecommendationTrend] `json:"recommendations"`
	Earnings        Field[[]EarningsRecord]      `json:"earnings"`
	Quote           Field[*Quote]                `json:"quote"`
	PriceTarget     Field[*PriceTarget]          `json:"priceTarget"`
	Momentum        Field[*MomentumMetrics]      `json:"momentum"`
	Price           float64                      `json:"price"`
	PriceDate       string                       `json:"priceDate"`
	PriceSource     string                       `json:"priceSource"`
}
