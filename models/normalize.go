package models

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of delivery dates.
const DateLayout = "2006-01-02"

// NormalizeProductName folds a raw product name into the key used for category lookups
// and aggregation: surrounding and repeated whitespace removed, lower case.
func NormalizeProductName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ParseDate parses a YYYY-MM-DD delivery date as a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two instants by calendar day.
func SameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// FormatDate renders a nullable date, returning "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
