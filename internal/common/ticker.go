// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// Ticker represents a normalized US equity ticker.
type Ticker struct {
	// Code is the upper-case symbol (e.g., "AAPL", "BRK.B")
	Code string
	// Raw is the original ticker string
	Raw string
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,5}([.\-][A-Z]{1,2})?$`)

// ParseTicker normalizes a ticker string.
// Supports formats:
//   - "AAPL" -> Code="AAPL"
//   - "nvda" -> Code="NVDA" (normalized to uppercase)
//   - "NASDAQ:NVDA" -> Code="NVDA" (exchange prefix dropped)
//   - "AAPL.US" -> Code="AAPL" (EODHD suffix dropped)
func ParseTicker(ticker string) Ticker {
	raw := ticker
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		ticker = ticker[idx+1:]
	}
	ticker = strings.TrimSuffix(ticker, ".US")

	return Ticker{Code: ticker, Raw: raw}
}

// Valid reports whether the code looks like a listed US symbol
func (t Ticker) Valid() bool {
	return tickerPattern.MatchString(t.Code)
}

// String returns the normalized code.
func (t Ticker) String() string {
	return t.Code
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "AAPL" -> "AAPL.US", "BRK.B" -> "BRK-B.US"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	return strings.ReplaceAll(t.Code, ".", "-") + ".US"
}

// YahooSymbol returns the Yahoo Finance symbol format.
// Example: "BRK.B" -> "BRK-B"
func (t Ticker) YahooSymbol() string {
	return strings.ReplaceAll(t.Code, ".", "-")
}
