package models

import (
	"strings"
	"time"
)

// Resource kinds used as the first component of a FetchKey
const (
	KindAnalysis      = "analysis"
	KindTransform     = "transform"
	KindFilingIndex   = "filings"
	KindFilingExcerpt = "excerpt"
	KindPriceTarget   = "pricetarget"
	KindHistPrice     = "histprice"
	KindSeries        = "series"
	KindKeywords      = "keywords"
	KindArticles      = "articles"
	KindSentiment     = "sentiment"
	KindEvents        = "events"
	KindCIK           = "cik"
	KindRecommends    = "recommendations"
	KindEarnings      = "earnings"
)

// FetchKey identifies one cacheable unit. The rendered form is a pure
// function of the fields so it is stable across process restarts.
type FetchKey struct {
	Kind   string `json:"kind"`
	Ticker string `json:"ticker"`
	Date   string `json:"date,omitempty"` // YYYY-MM-DD
	Tag    string `json:"tag,omitempty"`  // Model, schema or provider qualifier
}

// NewFetchKey builds a key for a ticker on a baseline date
func NewFetchKey(kind, ticker string, date time.Time, tag string) FetchKey {
	k := FetchKey{Kind: kind, Ticker: strings.ToUpper(ticker), Tag: tag}
	if !date.IsZero() {
		k.Date = date.UTC().Format("2006-01-02")
	}
	return k
}

// String renders kind:TICKER:date[:tag]
func (k FetchKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.Kind)
	sb.WriteByte(':')
	sb.WriteString(k.Ticker)
	sb.WriteByte(':')
	sb.WriteString(k.Date)
	if k.Tag != "" {
		sb.WriteByte(':')
		sb.WriteString(k.Tag)
	}
	return sb.String()
}
