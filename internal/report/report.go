// Package report pivots reconciled rows into the wide per-keyword report.
package report

import (
	"cmp"
	"errors"
	"slices"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// ErrNoRanks is returned when rows exist but none carries a position.
var ErrNoRanks = errors.New("no ranks in any date range")

type group struct {
	key   domain.Key
	ranks [window.Count]domain.Rank
	set   [window.Count]bool
	rows  []domain.MergedRow
}

// Build pivots positions by window into current and previous ranks and
// attaches the metrics of the row that produced the latest rank. A key
// with no rank at all takes the metrics of its newest row. Rows are
// ordered by adjusted clicks, highest first.
func Build(rows []domain.MergedRow, windows []window.Window) ([]domain.ReportRow, error) {
	if len(rows) == 0 {
		return []domain.ReportRow{}, nil
	}

	groups := make([]*group, 0)
	byKey := make(map[domain.Key]*group)
	for _, m := range rows {
		g, ok := byKey[m.Key()]
		if !ok {
			g = &group{key: m.Key()}
			byKey[m.Key()] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, m)

		i := window.Index(windows, m.Window)
		if i < 0 || i >= window.Count || g.set[i] {
			continue
		}
		g.set[i] = true
		g.ranks[i] = m.Position
	}

	out := make([]domain.ReportRow, 0, len(groups))
	ranked := 0
	for _, g := range groups {
		first, ok := FirstRank(g.ranks[:])
		if ok {
			ranked++
		}

		rep := representative(g, first, ok, windows)
		row := domain.ReportRow{
			Query:          g.key.Query,
			Impressions:    rep.Impressions,
			Clicks:         rep.Clicks,
			InHouseClicks:  rep.InHouseClicks,
			SerpClixClicks: rep.SerpClixClicks,
			AdjustedClicks: rep.AdjustedClicks,
			Page:           g.key.Page,
			Country:        g.key.Country,
			DateRange:      rep.Window.Label(),
			Domain:         rep.Domain,
		}
		for i, r := range g.ranks {
			row.SetRank(i, r)
		}
		out = append(out, row)
	}

	if ranked == 0 {
		return nil, ErrNoRanks
	}

	Sort(out)
	return out, nil
}

// FirstRank returns the newest present rank.
func FirstRank(ranks []domain.Rank) (domain.Rank, bool) {
	for _, r := range ranks {
		if r.Valid {
			return r, true
		}
	}
	return domain.Rank{}, false
}

// representative picks the row whose position equals first, newest window
// first, or the newest row when the key has no rank.
func representative(g *group, first domain.Rank, ranked bool, windows []window.Window) domain.MergedRow {
	best := -1
	bestIdx := len(windows) + 1
	for i, m := range g.rows {
		if ranked && (!m.Position.Valid || !m.Position.Equal(first)) {
			continue
		}
		idx := window.Index(windows, m.Window)
		if idx < 0 {
			idx = len(windows)
		}
		if idx < bestIdx {
			best, bestIdx = i, idx
		}
	}
	if best < 0 {
		return g.rows[0]
	}
	return g.rows[best]
}

// Sort orders rows by adjusted clicks descending, then query, page and
// country.
func Sort(rows []domain.ReportRow) {
	slices.SortStableFunc(rows, func(a, b domain.ReportRow) int {
		if c := cmp.Compare(b.AdjustedClicks, a.AdjustedClicks); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Query, b.Query); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Page, b.Page); c != 0 {
			return c
		}
		return cmp.Compare(a.Country, b.Country)
	})
}
