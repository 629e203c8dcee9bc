package parse

import (
	"strings"
	"time"
)

// Date layouts observed in provider payloads, most common first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02.01.2006",
	time.RFC3339,
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// NormalizeDate canonicalizes a provider appointment-date string to
// YYYY-MM-DD. Empty input stays empty; an unparseable value is returned
// unchanged rather than dropped, so novel-but-odd provider formats still
// reach the observation log.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// NormalizeTimestamp canonicalizes a provider timestamp string to
// "YYYY-MM-DD HH:MM:SS", with the same pass-through behavior as
// NormalizeDate for unparseable values.
func NormalizeTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return s
}
