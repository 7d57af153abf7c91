package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date wire format used by the CLI and the store.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date (YYYY-MM-DD) as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
