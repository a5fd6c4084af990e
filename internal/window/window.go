// Package window computes the rolling date range buckets every data source
// is aligned onto. Six buckets of roughly 28 days are anchored on the first
// day of the anchor's month, newest first.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Count is the number of buckets.
	Count = 6

	// leadDays is the length of the newest bucket, which ends on the first
	// of the month.
	leadDays = 29
	// spanDays is the length of every older bucket.
	spanDays = 28

	dateLayout     = "2006-01-02"
	labelSeparator = ":"
)

// ErrInvalidLabel is returned when a bucket label cannot be parsed.
var ErrInvalidLabel = errors.New("invalid date range label")

// Window is a closed interval of whole UTC days.
type Window struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Windows returns the buckets for anchor, newest first. Adjacent buckets
// share their boundary day.
func Windows(anchor time.Time) []Window {
	fom := FirstOfMonth(anchor)

	out := make([]Window, 0, Count)
	end := fom
	start := fom.AddDate(0, 0, -leadDays)
	for range Count {
		out = append(out, Window{Start: start, End: end})
		end = start
		start = start.AddDate(0, 0, -spanDays)
	}
	return out
}

// Contains reports whether t's calendar day falls inside w, bounds included.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Label renders w as "start:end".
func (w Window) Label() string {
	return w.Start.Format(dateLayout) + labelSeparator + w.End.Format(dateLayout)
}

// String implements fmt.Stringer.
func (w Window) String() string { return w.Label() }

// IsZero reports whether w is unset.
func (w Window) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

// Days is the inclusive number of days covered.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// ParseLabel is the inverse of Label.
func ParseLabel(s string) (Window, error) {
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(s), labelSeparator)
	if !ok {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q: %w", ErrInvalidLabel, s, err)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q: %w", ErrInvalidLabel, s, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidLabel, s)
	}
	return Window{Start: start, End: end}, nil
}

// Bucket returns the first window containing t. Boundary days belong to the
// newer of the two windows that share them.
func Bucket(windows []Window, t time.Time) (Window, bool) {
	for _, w := range windows {
		if w.Contains(t) {
			return w, true
		}
	}
	return Window{}, false
}

// Index returns the position of w in windows, or -1.
func Index(windows []Window, w Window) int {
	for i := range windows {
		if windows[i].Start.Equal(w.Start) && windows[i].End.Equal(w.End) {
			return i
		}
	}
	return -1
}

// RankColumn names the report column for bucket i: current_rank for the
// newest, previous_rank_N for the older ones.
func RankColumn(i int) string {
	if i == 0 {
		return "current_rank"
	}
	return fmt.Sprintf("previous_rank_%d", i)
}
