package common

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for baseline dates
const DateLayout = "2006-01-02"

// ParseBaselineDate parses a YYYY-MM-DD baseline date as a UTC midnight.
// An empty value means today.
func ParseBaselineDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return Today(now), nil
	}
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	if d.After(Today(now)) {
		return time.Time{}, fmt.Errorf("date %s is in the future", value)
	}
	return d, nil
}

// Today truncates now to a UTC calendar date
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsHistorical reports whether the baseline date is strictly before today
func IsHistorical(date time.Time, now time.Time) bool {
	return date.Before(Today(now))
}

// FormatDate renders a date in the wire format
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
