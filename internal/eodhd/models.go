package eodhd

import (
	"time"
)

// EODData represents a single day's end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODData.
type EODResponse []EODData

// RealTimeQuote is the /real-time response.
type RealTimeQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_p"`
}

// FundamentalsResponse represents the fundamentals blocks this service reads.
type FundamentalsResponse struct {
	General        *GeneralInfo    `json:"General"`
	Highlights     *Highlights     `json:"Highlights"`
	AnalystRatings *AnalystRatings `json:"AnalystRatings"`
}

// GeneralInfo contains company identification.
type GeneralInfo struct {
	Code     string `json:"Code"`
	Name     string `json:"Name"`
	Exchange string `json:"Exchange"`
	Sector   string `json:"Sector"`
	Industry string `json:"Industry"`
}

// Highlights contains headline valuation figures.
type Highlights struct {
	MarketCapitalization  float64 `json:"MarketCapitalization"`
	WallStreetTargetPrice float64 `json:"WallStreetTargetPrice"`
	PERatio               float64 `json:"PERatio"`
	MostRecentQuarter     string  `json:"MostRecentQuarter"`
}

// AnalystRatings contains analyst ratings data.
type AnalystRatings struct {
	Rating      float64 `json:"Rating"`
	TargetPrice float64 `json:"TargetPrice"`
	StrongBuy   int     `json:"StrongBuy"`
	Buy         int     `json:"Buy"`
	Hold        int     `json:"Hold"`
	Sell        int     `json:"Sell"`
	StrongSell  int     `json:"StrongSell"`
}

// EarningsHistoryEntry represents a single earnings history entry.
type EarningsHistoryEntry struct {
	ReportDate        string   `json:"reportDate"`
	Date              string   `json:"date"`
	BeforeAfterMarket string   `json:"beforeAfterMarket"`
	Currency          string   `json:"currency"`
	EPSActual         *float64 `json:"epsActual"`
	EPSEstimate       *float64 `json:"epsEstimate"`
	EPSDifference     *float64 `json:"epsDifference"`
	SurprisePercent   *float64 `json:"surprisePercent"`
}
