package flatfile

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first numeric layouts are left out
// because they are ambiguous with month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// parseDate returns nil for an empty cell. ok is false when a non-empty cell
// matched none of the known layouts.
func parseDate(raw string) (t *time.Time, ok bool) {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, "nan") || strings.EqualFold(value, "nat") {
		return nil, true
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			utc := parsed.UTC()
			return &utc, true
		}
	}
	return nil, false
}
