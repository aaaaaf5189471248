package models

import (
	"encoding/json"
	"time"
)

// AnalyzeRequest is the validated input of one analysis
type AnalyzeRequest struct {
	Ticker string `json:"ticker" validate:"required,min=1,max=10"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Model  string `json:"model,omitempty" validate:"omitempty,max=100"`
}

// DataSnapshot is everything fetched for the transform payload
type DataSnapshot struct {
	Filings    []Filing   `json:"filings"`
	MarketData MarketData `json:"marketData"`
}

// AnalysisResult is the persisted outcome of one (ticker, date, model) run
type AnalysisResult struct {
	Input         AnalyzeRequest   `json:"input"`
	Data          DataSnapshot     `json:"data"`
	Analysis      json.RawMessage  `json:"analysis"`
	News          *NewsBundle      `json:"news"`
	Model         string           `json:"model"`
	SchemaVersion string           `json:"schemaVersion"`
	Historical    bool             `json:"historical"`
	RequestID     string           `json:"requestId"`
	StageTimings  map[string]int64 `json:"stageTimingsMs,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// StoredResult is a result store row
type StoredResult struct {
	Ticker     string
	Date       string
	Version    string
	Data       []byte
	Historical bool
	UpdatedAt  time.Time
}
