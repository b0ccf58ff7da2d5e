package portfolio

import (
	"strings"
	"time"
)

// Accepted inbound date shapes, most specific first. Clients send anything
// from full RFC 3339 timestamps down to a bare year.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// normalizeDate canonicalizes a date string to YYYY-MM-DD, returning nil for
// blank or unparseable input rather than failing the save.
func normalizeDate(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		formatted := parsed.Format("2006-01-02")
		return &formatted
	}
	return nil
}
