package domain

import (
	"strconv"
	"time"

	"github.com/jonesrussell/rankrecon/internal/window"
)

// Key identifies a keyword/page/country triple.
type Key struct {
	Query   string
	Page    string
	Country string
}

// SearchRecord is one analytics row for a query/page/country in a window.
type SearchRecord struct {
	Query       string
	Page        string
	Country     string
	Clicks      float64
	Impressions float64
	CTR         float64
	Position    float64
	Window      window.Window
	Domain      string
}

// SearchRecordHeader is the delimited-output header for SearchRecord.
var SearchRecordHeader = []string{
	"query", "page", "country", "clicks", "impressions", "ctr", "position", "date_range", "domain",
}

// Record renders r in SearchRecordHeader order.
func (r SearchRecord) Record() []string {
	return []string{
		r.Query, r.Page, r.Country,
		FormatNumber(r.Clicks), FormatNumber(r.Impressions), FormatNumber(r.CTR), FormatNumber(r.Position),
		r.Window.Label(), r.Domain,
	}
}

// ClickSource names where a simulated click came from.
type ClickSource string

// Simulated click sources.
const (
	SourceInHouse  ClickSource = "in_house"
	SourceSerpClix ClickSource = "serpclix"
)

// ClickEvent is one simulated click.
type ClickEvent struct {
	Query   string
	Country string
	Date    time.Time
	Page    string
	Source  ClickSource
}

// ClickCount aggregates simulated clicks per keyword/page/country/window.
type ClickCount struct {
	Query    string
	Page     string
	Country  string
	Window   window.Window
	Domain   string
	InHouse  int
	SerpClix int
}

// Total is the combined simulated click volume.
func (c ClickCount) Total() int { return c.InHouse + c.SerpClix }

// ClickCountHeader is the delimited-output header for ClickCount.
var ClickCountHeader = []string{
	"query", "page", "country", "in_house_clicks", "serpclix_clicks", "simulated_clicks", "date_range", "domain",
}

// Record renders c in ClickCountHeader order.
func (c ClickCount) Record() []string {
	return []string{
		c.Query, c.Page, c.Country,
		strconv.Itoa(c.InHouse), strconv.Itoa(c.SerpClix), strconv.Itoa(c.Total()),
		c.Window.Label(), c.Domain,
	}
}

// MergedRow is the outer join of analytics and simulated clicks.
type MergedRow struct {
	Query          string
	Page           string
	Country        string
	Window         window.Window
	Domain         string
	Position       Rank
	Clicks         float64
	Impressions    float64
	CTR            float64
	InHouseClicks  int
	SerpClixClicks int
	AdjustedClicks float64
}

// Key returns the row's keyword/page/country triple.
func (m MergedRow) Key() Key {
	return Key{Query: m.Query, Page: m.Page, Country: m.Country}
}

// MergedRowHeader is the delimited-output header for MergedRow.
var MergedRowHeader = []string{
	"query", "page", "country", "date_range", "domain", "position", "clicks", "impressions", "ctr",
	"in_house_clicks", "serpclix_clicks", "adjusted_clicks",
}

// Record renders m in MergedRowHeader order.
func (m MergedRow) Record() []string {
	return []string{
		m.Query, m.Page, m.Country, m.Window.Label(), m.Domain, m.Position.String(),
		FormatNumber(m.Clicks), FormatNumber(m.Impressions), FormatNumber(m.CTR),
		strconv.Itoa(m.InHouseClicks), strconv.Itoa(m.SerpClixClicks), FormatNumber(m.AdjustedClicks),
	}
}

// PreviousRanks is the number of rank columns older than current_rank.
const PreviousRanks = window.Count - 1

// ReportRow is one line of the wide per-keyword report.
type ReportRow struct {
	Query          string              `json:"query"`
	CurrentRank    Rank                `json:"current_rank"`
	PreviousRank   [PreviousRanks]Rank `json:"previous_rank"`
	Impressions    float64             `json:"impressions"`
	Clicks         float64             `json:"clicks"`
	InHouseClicks  int                 `json:"in_house_clicks"`
	SerpClixClicks int                 `json:"serpclix_clicks"`
	AdjustedClicks float64             `json:"adjusted_clicks"`
	Page           string              `json:"page"`
	Country        string              `json:"country"`
	DateRange      string              `json:"date_range"`
	Domain         string              `json:"domain"`
}

// Ranks returns current_rank followed by the previous ranks, newest first.
func (r ReportRow) Ranks() []Rank {
	out := make([]Rank, 0, window.Count)
	out = append(out, r.CurrentRank)
	return append(out, r.PreviousRank[:]...)
}

// SetRank assigns the rank for bucket i.
func (r *ReportRow) SetRank(i int, rank Rank) {
	if i == 0 {
		r.CurrentRank = rank
		return
	}
	r.PreviousRank[i-1] = rank
}

// ReportHeader is the report column order.
var ReportHeader = func() []string {
	h := []string{"query"}
	for i := range window.Count {
		h = append(h, window.RankColumn(i))
	}
	return append(h,
		"impressions", "clicks", "in_house_clicks", "serpclix_clicks", "adjusted_clicks",
		"page", "country", "date_range", "domain",
	)
}()

// Record renders r in ReportHeader order.
func (r ReportRow) Record() []string {
	out := make([]string, 0, len(ReportHeader))
	out = append(out, r.Query)
	for _, rank := range r.Ranks() {
		out = append(out, rank.String())
	}
	return append(out,
		FormatNumber(r.Impressions), FormatNumber(r.Clicks),
		strconv.Itoa(r.InHouseClicks), strconv.Itoa(r.SerpClixClicks), FormatNumber(r.AdjustedClicks),
		r.Page, r.Country, r.DateRange, r.Domain,
	)
}
