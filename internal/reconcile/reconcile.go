// Package reconcile joins analytics with simulated click counts and
// subtracts the synthetic volume.
package reconcile

import (
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/urlnorm"
)

// Keeper decides whether a query on a domain is reported.
type Keeper interface {
	Keep(query, domain string) bool
}

// Stats describes the join.
type Stats struct {
	SearchRows   int
	ClickRows    int
	Matched      int
	ClickOnly    int
	ShallowPages int
	Filtered     int
	Output       int
}

type joinKey struct {
	query, page, country, window, domain string
}

// Join performs a full outer join of records and counts on query, page,
// country, window and domain. Rows whose page is not below the site root
// or that keep rejects are dropped. Missing metrics count as zero; a
// missing position stays absent. Analytics rows come first in input
// order, followed by click-only rows.
func Join(records []domain.SearchRecord, counts []domain.ClickCount, keep Keeper) ([]domain.MergedRow, Stats) {
	stats := Stats{SearchRows: len(records), ClickRows: len(counts)}

	byKey := make(map[joinKey]int, len(counts))
	for i, c := range counts {
		k := joinKey{c.Query, c.Page, c.Country, c.Window.Label(), c.Domain}
		if _, dup := byKey[k]; !dup {
			byKey[k] = i
		}
	}
	used := make([]bool, len(counts))

	rows := make([]domain.MergedRow, 0, len(records)+len(counts))
	for _, r := range records {
		m := domain.MergedRow{
			Query:       r.Query,
			Page:        r.Page,
			Country:     r.Country,
			Window:      r.Window,
			Domain:      r.Domain,
			Position:    domain.NewRank(r.Position),
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
			CTR:         r.CTR,
		}
		k := joinKey{r.Query, r.Page, r.Country, r.Window.Label(), r.Domain}
		if i, ok := byKey[k]; ok {
			used[i] = true
			stats.Matched++
			m.InHouseClicks = counts[i].InHouse
			m.SerpClixClicks = counts[i].SerpClix
		}
		rows = append(rows, m)
	}

	for i, c := range counts {
		if used[i] {
			continue
		}
		stats.ClickOnly++
		rows = append(rows, domain.MergedRow{
			Query:          c.Query,
			Page:           c.Page,
			Country:        c.Country,
			Window:         c.Window,
			Domain:         c.Domain,
			InHouseClicks:  c.InHouse,
			SerpClixClicks: c.SerpClix,
		})
	}

	out := rows[:0]
	for _, m := range rows {
		if !urlnorm.IsDeepPage(m.Page) {
			stats.ShallowPages++
			continue
		}
		if keep != nil && !keep.Keep(m.Query, m.Domain) {
			stats.Filtered++
			continue
		}
		m.AdjustedClicks = AdjustedClicks(m.Clicks, m.InHouseClicks, m.SerpClixClicks)
		out = append(out, m)
	}
	stats.Output = len(out)
	return out, stats
}

// AdjustedClicks removes simulated volume from real clicks. The result may
// be negative when more clicks were simulated than recorded.
func AdjustedClicks(clicks float64, inHouse, serpClix int) float64 {
	return clicks - float64(inHouse) - float64(serpClix)
}
