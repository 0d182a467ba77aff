package models

import (
	"strings"
	"testing"
	"time"
)

func TestIsISODate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2026-03-10", true},
		{"2026-12-31", true},
		{"2026-13-01", false},
		{"2026-02-30", false},
		{"2026-3-10", false},
		{"March 10, 2026", false},
		{"2026-03-10T00:00:00Z", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsISODate(tt.input); got != tt.want {
			t.Errorf("IsISODate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseISODate(t *testing.T) {
	parsed, ok := ParseISODate("2026-03-10")
	if !ok {
		t.Fatal("expected 2026-03-10 to parse")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.March || parsed.Day() != 10 {
		t.Errorf("ParseISODate returned %v", parsed)
	}

	if _, ok := ParseISODate("not-a-date"); ok {
		t.Error("expected parse failure for non-date input")
	}
}

func TestNormalizeISODate(t *testing.T) {
	if got := NormalizeISODate("2026-03-10"); got != "2026-03-10" {
		t.Errorf("valid date normalized to %q", got)
	}
	// Anything ambiguous must become empty, never a guess.
	for _, input := range []string{"March 2026", "TBD", "next week", "2026/03/10"} {
		if got := NormalizeISODate(input); got != "" {
			t.Errorf("NormalizeISODate(%q) = %q, want empty", input, got)
		}
	}
}

func TestFormatISODate(t *testing.T) {
	d := time.Date(2026, time.March, 10, 15, 4, 5, 0, time.UTC)
	if got := FormatISODate(d); got != "2026-03-10" {
		t.Errorf("FormatISODate = %q", got)
	}
}

func TestGenerateEventIDUnique(t *testing.T) {
	a, b := GenerateEventID(), GenerateEventID()
	if a == b {
		t.Error("expected distinct event IDs")
	}
	if a == "" {
		t.Error("expected non-empty event ID")
	}
}

func TestGenerateRunID(t *testing.T) {
	ts := time.Date(2026, time.March, 10, 12, 30, 0, 0, time.UTC)
	id := GenerateRunID(ts)
	if !strings.HasPrefix(id, "run-2026-03-10-123000-") {
		t.Errorf("unexpected run ID format: %q", id)
	}
}
