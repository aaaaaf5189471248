package models

import "time"

// Article is one filtered news search hit
type Article struct {
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt,omitempty"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Language  string    `json:"language"`
	Published time.Time `json:"published"`
	Tone      *float64  `json:"tone,omitempty"`
}

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Sentiment is the classification over a set of articles
type Sentiment struct {
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// NewsBundle combines keywords, articles and sentiment for a ticker/date
type NewsBundle struct {
	Ticker    string         `json:"ticker"`
	Date      string         `json:"date"`
	Keywords  []string       `json:"keywords"`
	Articles  []Article      `json:"articles"`
	Sentiment Sentiment      `json:"sentiment"`
	Events    KeyEventBundle `json:"keyEvents"`
	Degraded  []string       `json:"degraded,omitempty"` // Parts served from fallbacks
}
