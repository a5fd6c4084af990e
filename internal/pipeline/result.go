package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// Stage names used for row counts, logs and metrics.
const (
	StageSearch   = "gsc"
	StageInHouse  = "in_house_clicks"
	StageSerpClix = "serpclix_clicks"
	StageClicks   = "click_data"
	StageMerged   = "merged"
	StageReport   = "report"
	StageRanks    = "rank_history"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Result is everything one run produced.
type Result struct {
	RunID      uuid.UUID
	Anchor     time.Time
	Windows    []window.Window
	StartedAt  time.Time
	FinishedAt time.Time

	Search      []domain.SearchRecord
	Clicks      []domain.ClickCount
	Merged      []domain.MergedRow
	Report      []domain.ReportRow
	RankHistory []*ranktracker.History

	// Counts holds the row count of each stage.
	Counts map[string]int
}

func newResult(id uuid.UUID, anchor, started time.Time) *Result {
	return &Result{
		RunID:     id,
		Anchor:    window.Day(anchor),
		Windows:   window.Windows(anchor),
		StartedAt: started,
		Counts:    make(map[string]int),
	}
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
