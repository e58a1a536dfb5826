package utils

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// ParseDay parses a calendar day string ("2006-01-02") into a UTC midnight
// timestamp, the canonical representation for day-keyed rows.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// DayString formats a timestamp as its calendar day.
func DayString(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// DayOf truncates a timestamp to UTC midnight.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
