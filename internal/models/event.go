package models

// EventType is the normalized kind of a key event
type EventType string

const (
	EventEarnings   EventType = "earnings"
	EventNews       EventType = "news"
	EventFiling     EventType = "filing"
	EventRegulatory EventType = "regulatory"
)

// Event is the union record merged from articles, filings and earnings
type Event struct {
	Type    EventType `json:"type"`
	Date    string    `json:"date"` // YYYY-MM-DD
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
	Source  string    `json:"source"`
}

// KeyEventBundle is the classified event window around a baseline date
type KeyEventBundle struct {
	Primary  *Event  `json:"primary"`
	Details  []Event `json:"details"`
	Degraded bool    `json:"degraded"`
	Reason   string  `json:"reason,omitempty"`
}
