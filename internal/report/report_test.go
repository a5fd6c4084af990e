package report_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/report"
	"github.com/jonesrussell/rankrecon/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindows(t *testing.T) []window.Window {
	t.Helper()
	return window.Windows(time.Date(2023, 3, 17, 0, 0, 0, 0, time.UTC))
}

func TestBuild(t *testing.T) {
	t.Helper()

	ws := testWindows(t)
	pageA := "https://example.com/shoes/red/"
	pageB := "https://example.com/boots/blue/"

	rows := []domain.MergedRow{
		// key A: rank missing in window 0, present in 1 and 3
		{Query: "red shoes", Page: pageA, Country: "US", Window: ws[1], Domain: "example.com",
			Position: domain.NewRank(5), Clicks: 20, Impressions: 300, InHouseClicks: 2, AdjustedClicks: 18},
		{Query: "red shoes", Page: pageA, Country: "US", Window: ws[0], Domain: "example.com",
			InHouseClicks: 4, AdjustedClicks: -4},
		{Query: "red shoes", Page: pageA, Country: "US", Window: ws[3], Domain: "example.com",
			Position: domain.NewRank(11), Clicks: 1, AdjustedClicks: 1},
		// duplicate cell keeps the first value
		{Query: "red shoes", Page: pageA, Country: "US", Window: ws[3], Domain: "example.com",
			Position: domain.NewRank(99)},
		// key B: current rank present
		{Query: "blue boots", Page: pageB, Country: "CA", Window: ws[0], Domain: "example.com",
			Position: domain.NewRank(2.5), Clicks: 40, Impressions: 900, SerpClixClicks: 3, AdjustedClicks: 37},
		// key C: never ranked, only simulated clicks
		{Query: "green hats", Page: "https://example.com/hats/green/", Country: "US", Window: ws[2], Domain: "example.com",
			InHouseClicks: 1, AdjustedClicks: -1},
		{Query: "green hats", Page: "https://example.com/hats/green/", Country: "US", Window: ws[1], Domain: "example.com",
			InHouseClicks: 2, AdjustedClicks: -2},
	}

	got, err := report.Build(rows, ws)
	require.NoError(t, err)

	want := []domain.ReportRow{
		{
			Query: "blue boots", CurrentRank: domain.NewRank(2.5),
			Impressions: 900, Clicks: 40, SerpClixClicks: 3, AdjustedClicks: 37,
			Page: pageB, Country: "CA", DateRange: ws[0].Label(), Domain: "example.com",
		},
		{
			Query:        "red shoes",
			PreviousRank: [domain.PreviousRanks]domain.Rank{domain.NewRank(5), {}, domain.NewRank(11), {}, {}},
			Impressions:  300, Clicks: 20, InHouseClicks: 2, AdjustedClicks: 18,
			Page: pageA, Country: "US", DateRange: ws[1].Label(), Domain: "example.com",
		},
		{
			Query: "green hats", InHouseClicks: 2, AdjustedClicks: -2,
			Page: "https://example.com/hats/green/", Country: "US", DateRange: ws[1].Label(), Domain: "example.com",
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_NoRanks(t *testing.T) {
	t.Helper()

	ws := testWindows(t)
	rows := []domain.MergedRow{
		{Query: "q", Page: "https://example.com/a/", Country: "US", Window: ws[0], InHouseClicks: 1},
	}
	_, err := report.Build(rows, ws)
	require.ErrorIs(t, err, report.ErrNoRanks)

	empty, err := report.Build(nil, ws)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSort_TiesAreDeterministic(t *testing.T) {
	t.Helper()

	rows := []domain.ReportRow{
		{Query: "b", Page: "p1", Country: "US", AdjustedClicks: 1},
		{Query: "a", Page: "p2", Country: "US", AdjustedClicks: 1},
		{Query: "a", Page: "p1", Country: "US", AdjustedClicks: 1},
		{Query: "z", Page: "p1", Country: "US", AdjustedClicks: 5},
	}
	report.Sort(rows)

	order := make([]string, 0, len(rows))
	for _, r := range rows {
		order = append(order, r.Query+r.Page)
	}
	assert.Equal(t, []string{"zp1", "ap1", "ap2", "bp1"}, order)
}

func TestFirstRank(t *testing.T) {
	t.Helper()

	r, ok := report.FirstRank([]domain.Rank{{}, domain.NewRank(7), domain.NewRank(3)})
	require.True(t, ok)
	assert.Equal(t, domain.NewRank(7), r)

	_, ok = report.FirstRank([]domain.Rank{{}, {}})
	assert.False(t, ok)
}
