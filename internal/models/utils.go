package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const isoDateLayout = "2006-01-02"

// GenerateEventID creates a unique ID for a newly inserted event.
func GenerateEventID() string {
	return uuid.NewString()
}

// GenerateRunID creates a unique identifier for one pipeline run.
func GenerateRunID(timestamp time.Time) string {
	return fmt.Sprintf("run-%s-%s", timestamp.UTC().Format("2006-01-02-150405"), uuid.NewString()[:8])
}

// IsISODate reports whether s is a valid YYYY-MM-DD date string.
func IsISODate(s string) bool {
	if len(s) != len(isoDateLayout) {
		return false
	}
	_, err := time.Parse(isoDateLayout, s)
	return err == nil
}

// ParseISODate parses a YYYY-MM-DD string. The zero time and false are
// returned for anything that does not parse exactly.
func ParseISODate(s string) (time.Time, bool) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeISODate returns s if it is a valid ISO date, otherwise "".
// Ambiguous or relative dates must become empty, never a guessed value.
func NormalizeISODate(s string) string {
	if IsISODate(s) {
		return s
	}
	return ""
}

// FormatISODate renders t as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}
