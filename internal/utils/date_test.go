package utils

import (
	"testing"
	"time"
)

func TestParseDay_RoundTrips(t *testing.T) {
	day, err := ParseDay("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Hour() != 0 || day.Location() != time.UTC {
		t.Fatalf("expected UTC midnight got %v", day)
	}
	if got := DayString(day); got != "2025-03-09" {
		t.Fatalf("expected round trip got %q", got)
	}
}

func TestParseDay_RejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "yesterday", "2025-13-01", "03/09/2025"} {
		if _, err := ParseDay(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestDayOf_Truncates(t *testing.T) {
	at := time.Date(2025, 3, 9, 17, 30, 12, 0, time.UTC)
	day := DayOf(at)
	if !day.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected midnight truncation got %v", day)
	}
}
