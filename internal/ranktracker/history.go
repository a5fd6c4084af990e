package ranktracker

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/jonesrussell/rankrecon/internal/domain"
)

const hoursPerDay = 24

// ThinDates keeps the newest date and then every date at least minGapDays
// older than the last one kept. Duplicates collapse. The result is newest
// first.
func ThinDates(dates []time.Time, minGapDays int) []time.Time {
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return b.Compare(a) })
	sorted = slices.CompactFunc(sorted, func(a, b time.Time) bool { return a.Equal(b) })

	out := make([]time.Time, 0, len(sorted))
	for _, d := range sorted {
		if len(out) == 0 {
			out = append(out, d)
			continue
		}
		last := out[len(out)-1]
		if int(last.Sub(d).Hours()/hoursPerDay) >= minGapDays {
			out = append(out, d)
		}
	}
	return out
}

// HistoryKey identifies a tracked keyword row.
type HistoryKey struct {
	Keyword  string
	Location string
	URL      string
	Volume   string
	Tags     string
}

// HistoryRow is one keyword with its rank per retained date.
type HistoryRow struct {
	HistoryKey
	// Ranks aligns with History.Dates.
	Ranks []domain.Rank
}

// History is the pivoted rank history of one tracker.
type History struct {
	TrackerID string
	// Dates are ascending.
	Dates []time.Time
	Rows  []HistoryRow
}

// Pivot folds entries into one row per keyword, location, URL, volume and
// tags with a rank per date. Only dates listed in keep are used; a nil keep
// uses every date. Repeated observations keep the first value.
func Pivot(trackerID string, entries []Entry, keep []time.Time) *History {
	allowed := make(map[time.Time]struct{}, len(keep))
	for _, d := range keep {
		allowed[d] = struct{}{}
	}

	var dates []time.Time
	seenDate := make(map[time.Time]struct{})
	for _, e := range entries {
		if keep != nil {
			if _, ok := allowed[e.Date]; !ok {
				continue
			}
		}
		if _, ok := seenDate[e.Date]; !ok {
			seenDate[e.Date] = struct{}{}
			dates = append(dates, e.Date)
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	col := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		col[d] = i
	}

	h := &History{TrackerID: trackerID, Dates: dates}
	rowIdx := make(map[HistoryKey]int)
	filled := make(map[[2]int]struct{})
	for _, e := range entries {
		c, ok := col[e.Date]
		if !ok {
			continue
		}
		k := HistoryKey{Keyword: e.Keyword, Location: e.Location, URL: e.URL, Volume: e.Volume, Tags: e.Tags}
		r, ok := rowIdx[k]
		if !ok {
			r = len(h.Rows)
			rowIdx[k] = r
			h.Rows = append(h.Rows, HistoryRow{HistoryKey: k, Ranks: make([]domain.Rank, len(dates))})
		}
		cell := [2]int{r, c}
		if _, dup := filled[cell]; dup {
			continue
		}
		filled[cell] = struct{}{}
		h.Rows[r].Ranks[c] = e.Rank
	}

	slices.SortStableFunc(h.Rows, func(a, b HistoryRow) int {
		return cmp.Or(
			cmp.Compare(a.Keyword, b.Keyword),
			cmp.Compare(a.Location, b.Location),
			cmp.Compare(a.URL, b.URL),
			cmp.Compare(a.Volume, b.Volume),
			cmp.Compare(a.Tags, b.Tags),
		)
	})
	return h
}

// Header is Keyword, the Rank_<date> columns, then Location, URL, Volume
// and Tags.
func (h *History) Header() []string {
	out := make([]string, 0, len(h.Dates)+5)
	out = append(out, ColKeyword)
	for _, d := range h.Dates {
		out = append(out, "Rank_"+d.Format(dateLayout))
	}
	return append(out, ColLocation, ColURL, ColVolume, ColTags)
}

// Records renders rows in Header order.
func (h *History) Records() [][]string {
	out := make([][]string, 0, len(h.Rows))
	for _, r := range h.Rows {
		rec := make([]string, 0, len(h.Dates)+5)
		rec = append(rec, r.Keyword)
		for _, rank := range r.Ranks {
			rec = append(rec, rank.String())
		}
		out = append(out, append(rec, r.Location, r.URL, r.Volume, r.Tags))
	}
	return out
}

// Archive loads rank history from an archive directory.
type Archive struct {
	Dir        string
	MinGapDays int
}

// History merges, thins and pivots the archived exports of trackerID.
func (a Archive) History(ctx context.Context, trackerID string) (*History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := Merge(a.Dir, trackerID)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.Date)
	}
	return Pivot(trackerID, entries, ThinDates(dates, a.MinGapDays)), nil
}
