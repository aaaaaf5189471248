package models

// Filing is one regulatory disclosure taken from the submissions index
type Filing struct {
	Form        string `json:"form"`
	FormLabel   string `json:"formLabel"`
	FilingDate  string `json:"filingDate"`
	ReportDate  string `json:"reportDate"`
	AccessionID string `json:"accessionId"`
	DocumentURL string `json:"documentUrl"`
	Excerpt     string `json:"excerpt,omitempty"`
	ExcerptErr  string `json:"excerptError,omitempty"`
}

// FormLabels maps recognized form types to a readable label
var FormLabels = map[string]string{
	"10-K": "Annual report",
	"10-Q": "Quarterly report",
	"8-K":  "Current report",
	"20-F": "Annual report (foreign issuer)",
	"40-F": "Annual report (Canadian issuer)",
	"6-K":  "Current report (foreign issuer)",
}
