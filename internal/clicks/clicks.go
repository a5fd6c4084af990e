// Package clicks normalizes the simulated click logs and counts them per
// date range bucket.
package clicks

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/geo"
	"github.com/jonesrussell/rankrecon/internal/table"
	"github.com/jonesrussell/rankrecon/internal/urlnorm"
)

// In-house sheet columns.
const (
	ColKeyword = "Keyword"
	ColVPN     = "VPN"
	ColRanking = "Ranking"
	ColLink    = "Link"
	ColDate    = "Date"
)

// SerpClix sheet columns.
const (
	ColClickerCountry = "Clicker Country"
	ColTimestamp      = "Timestamp"
	ColURL            = "URL"
)

// Drop reasons.
const (
	ReasonNoRanking      = "no_ranking"
	ReasonBadCountry     = "bad_country"
	ReasonUnknownCountry = "unknown_country"
	ReasonBadLink        = "bad_link"
	ReasonBadDate        = "bad_date"
	ReasonOutOfWindow    = "out_of_window"
)

const (
	maxInHouseCountryLen = 2
	minLinkSlashes       = 2
)

// Stats counts input rows and why rows were dropped.
type Stats struct {
	Rows    int
	Kept    int
	Dropped map[string]int
}

func newStats() Stats { return Stats{Dropped: make(map[string]int)} }

func (s *Stats) drop(reason string) { s.Dropped[reason]++ }

// DroppedTotal sums every drop reason.
func (s Stats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// ParseInHouse normalizes the manually tracked click sheet. The VPN cell's
// first word is the clicker's country code; only rows with a numeric
// ranking and a deep, slash-terminated link are kept.
func ParseInHouse(t *table.Table) ([]domain.ClickEvent, Stats, error) {
	stats := newStats()
	if err := t.Require(ColKeyword, ColVPN, ColRanking, ColLink, ColDate); err != nil {
		return nil, stats, err
	}

	events := make([]domain.ClickEvent, 0, t.Len())
	t.Each(func(r table.Row) {
		stats.Rows++

		if _, err := strconv.ParseFloat(strings.TrimSpace(r.Get(ColRanking)), 64); err != nil {
			stats.drop(ReasonNoRanking)
			return
		}

		country := strings.ToLower(strings.Split(r.Get(ColVPN), " ")[0])
		if len(country) > maxInHouseCountryLen {
			stats.drop(ReasonBadCountry)
			return
		}

		link := r.Get(ColLink)
		if urlnorm.SlashCount(link) <= minLinkSlashes || urlnorm.IsRootPage(link) || !strings.HasSuffix(link, "/") {
			stats.drop(ReasonBadLink)
			return
		}

		iso, ok := geo.ToISO2(country)
		if !ok {
			stats.drop(ReasonUnknownCountry)
			return
		}

		date, ok := ParseDate(r.Get(ColDate))
		if !ok {
			stats.drop(ReasonBadDate)
			return
		}

		events = append(events, domain.ClickEvent{
			Query:   strings.TrimRightFunc(r.Get(ColKeyword), unicode.IsSpace),
			Country: iso,
			Date:    date,
			Page:    link,
			Source:  domain.SourceInHouse,
		})
	})
	stats.Kept = len(events)
	return events, stats, nil
}

// ParseSerpClix normalizes the third-party click export.
func ParseSerpClix(t *table.Table) ([]domain.ClickEvent, Stats, error) {
	stats := newStats()
	if err := t.Require(ColKeyword, ColClickerCountry, ColTimestamp, ColURL); err != nil {
		return nil, stats, err
	}

	events := make([]domain.ClickEvent, 0, t.Len())
	t.Each(func(r table.Row) {
		stats.Rows++

		link := strings.TrimSpace(r.Get(ColURL))
		if !strings.Contains(link, "/") {
			stats.drop(ReasonBadLink)
			return
		}

		date, ok := ParseDate(r.Get(ColTimestamp))
		if !ok {
			stats.drop(ReasonBadDate)
			return
		}

		iso, ok := geo.ToISO2(r.Get(ColClickerCountry))
		if !ok {
			stats.drop(ReasonUnknownCountry)
			return
		}

		events = append(events, domain.ClickEvent{
			Query:   strings.TrimRightFunc(r.Get(ColKeyword), unicode.IsSpace),
			Country: iso,
			Date:    date,
			Page:    urlnorm.NormalizePage(link),
			Source:  domain.SourceSerpClix,
		})
	})
	stats.Kept = len(events)
	return events, stats, nil
}
