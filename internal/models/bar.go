package models

import "time"

// Bar is one daily OHLCV row
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjClose"`
	Volume   int64     `json:"volume"`
}

// Series is a daily series with its provider tag
type Series struct {
	Ticker string `json:"ticker"`
	Source string `json:"source"`
	Bars   []Bar  `json:"bars"`
}
