// Package finnhub provides a client for the Finnhub market data API:
// analyst recommendations, reported earnings, live quotes, price targets
// and the earnings calendar.
package finnhub

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAPIKey is returned when the client has no API key configured.
var ErrNoAPIKey = errors.New("Finnhub API key not configured")

// APIError represents an error from the Finnhub API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Finnhub rate limit exceeded, retry after %v", e.RetryAfter)
}

// Recommendation is one monthly analyst recommendation snapshot.
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
	Symbol     string `json:"symbol"`
}

// Earnings is one reported quarter.
type Earnings struct {
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	Period          string   `json:"period"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	Surprise        *float64 `json:"surprise"`
	SurprisePercent *float64 `json:"surprisePercent"`
	Symbol          string   `json:"symbol"`
}

// Quote is the /quote response.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// PriceTarget is the /stock/price-target response.
type PriceTarget struct {
	Symbol       string  `json:"symbol"`
	LastUpdated  string  `json:"lastUpdated"`
	TargetHigh   float64 `json:"targetHigh"`
	TargetLow    float64 `json:"targetLow"`
	TargetMean   float64 `json:"targetMean"`
	TargetMedian float64 `json:"targetMedian"`
}

