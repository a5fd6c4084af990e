package clicks

import (
	"strings"
	"time"

	"github.com/jonesrussell/rankrecon/internal/window"
)

// dateLayouts are the timestamp shapes seen in spreadsheet exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// ParseDate parses a spreadsheet date or timestamp to its UTC calendar
// day. Numeric month/day forms are read month first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return window.Day(t), true
		}
	}
	return time.Time{}, false
}
