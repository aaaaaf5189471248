// Package sec provides a client for SEC EDGAR: the ticker to CIK map, the
// submissions index and archived filing documents.
package sec

import (
	"errors"
	"fmt"
)

// ErrUnknownTicker is returned when EDGAR has no CIK for a ticker
var ErrUnknownTicker = errors.New("ticker not found in EDGAR company list")

// APIError represents a non-2xx answer from EDGAR
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("SEC EDGAR error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// companyTicker is one row of company_tickers.json
type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Submissions is the submissions index for one registrant
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

// RecentFilings holds the column-oriented recent filings arrays. Every
// slice has the same length; index i across them describes one filing.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Entry is one filing row taken out of RecentFilings
type Entry struct {
	AccessionNumber string
	FilingDate      string
	ReportDate      string
	Form            string
	PrimaryDocument string
}

// Len returns the number of complete rows
func (r RecentFilings) Len() int {
	n := len(r.AccessionNumber)
	for _, l := range []int{len(r.FilingDate), len(r.ReportDate), len(r.Form), len(r.PrimaryDocument)} {
		if l < n {
			n = l
		}
	}
	return n
}

// At returns row i
func (r RecentFilings) At(i int) Entry {
	return Entry{
		AccessionNumber: r.AccessionNumber[i],
		FilingDate:      r.FilingDate[i],
		ReportDate:      r.ReportDate[i],
		Form:            r.Form[i],
		PrimaryDocument: r.PrimaryDocument[i],
	}
}
