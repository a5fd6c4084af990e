// Package pipeline runs the reconciliation end to end: sheets and
// analytics in, report and rank history out to every configured sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/rankrecon/internal/clicks"
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/domains"
	"github.com/jonesrussell/rankrecon/internal/filter"
	"github.com/jonesrussell/rankrecon/internal/gsc"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
	"github.com/jonesrussell/rankrecon/internal/reconcile"
	"github.com/jonesrussell/rankrecon/internal/report"
	"github.com/jonesrussell/rankrecon/internal/sheets"
	"github.com/jonesrussell/rankrecon/internal/table"
	"github.com/jonesrussell/rankrecon/internal/telemetry"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// SheetSource loads a named input sheet.
type SheetSource interface {
	Fetch(ctx context.Context, name string) (*table.Table, error)
}

// SearchFetcher returns normalized analytics rows for domains over windows.
type SearchFetcher interface {
	Fetch(ctx context.Context, domains []string, windows []window.Window) ([]domain.SearchRecord, gsc.Stats, error)
}

// RankHistoryLoader loads the pivoted history of one tracker.
type RankHistoryLoader interface {
	History(ctx context.Context, trackerID string) (*ranktracker.History, error)
}

// Sink receives a finished result.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *Result) error
}

// RunRecorder persists run bookkeeping.
type RunRecorder interface {
	CreateRun(ctx context.Context, id uuid.UUID, anchor, startedAt time.Time) error
	FinishRun(ctx context.Context, id uuid.UUID, status string, rowCount int, runErr error) error
}

// Options wires a Service.
type Options struct {
	Sheets     SheetSource
	Search     SearchFetcher
	Ranks      RankHistoryLoader
	TrackerIDs []string
	Sinks      []Sink
	Recorder   RunRecorder
	Log        logger.Logger
	Metrics    *telemetry.Metrics
	Now        func() time.Time
}

// Service runs the pipeline.
type Service struct {
	sheets     SheetSource
	search     SearchFetcher
	ranks      RankHistoryLoader
	trackerIDs []string
	sinks      []Sink
	recorder   RunRecorder
	log        logger.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
}

// New builds a Service.
func New(opts Options) *Service {
	s := &Service{
		sheets:     opts.Sheets,
		search:     opts.Search,
		ranks:      opts.Ranks,
		trackerIDs: opts.TrackerIDs,
		sinks:      opts.Sinks,
		recorder:   opts.Recorder,
		log:        opts.Log,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// withLogger returns a copy of s that logs through log.
func (s *Service) withLogger(log logger.Logger) *Service {
	cp := *s
	cp.log = log
	return &cp
}

// inputs are the sheets one run reads.
type inputs struct {
	domains  *table.Table
	rules    *table.Table
	inHouse  *table.Table
	serpClix *table.Table
}

// Run executes a full report run for anchor. When only sinks fail the
// result is returned together with the joined sink errors.
func (s *Service) Run(ctx context.Context, anchor time.Time) (*Result, error) {
	res := newResult(uuid.New(), anchor, s.now())
	run := s.withLogger(s.log.With(logger.String("run_id", res.RunID.String())))
	log := run.log
	ctx = logger.WithContext(ctx, log)

	log.Info("Starting report run",
		logger.Time("anchor", res.Anchor),
		logger.String("newest_window", res.Windows[0].Label()),
	)
	run.createRun(ctx, res)

	err := run.build(ctx, res)
	if err == nil {
		err = run.writeSinks(ctx, res)
	}

	res.FinishedAt = s.now()
	status := runStatus(err)
	run.finishRun(ctx, res, status, err)
	s.metrics.RecordRun(status, res.Duration())

	if status == StatusFailed {
		log.Error("Report run failed", logger.Error(err), logger.Duration("duration", res.Duration()))
		return nil, err
	}
	log.Info("Report run finished",
		logger.String("status", status),
		logger.Int("report_rows", len(res.Report)),
		logger.Duration("duration", res.Duration()),
	)
	return res, err
}

// ErrSinks wraps the errors of sinks that failed to write.
var ErrSinks = errors.New("sink write failed")

func runStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrSinks):
		return StatusPartial
	default:
		return StatusFailed
	}
}

func (s *Service) build(ctx context.Context, res *Result) error {
	in, err := s.loadInputs(ctx)
	if err != nil {
		return err
	}

	list, err := domains.Parse(in.domains)
	if err != nil {
		return fmt.Errorf("parse domain sheet: %w", err)
	}
	if len(list.UnknownCountries) > 0 {
		s.log.Warn("Unresolved domain countries", logger.Strings("countries", list.UnknownCountries))
	}
	rules, err := filter.Parse(in.rules)
	if err != nil {
		return fmt.Errorf("parse filter sheet: %w", err)
	}

	records, gstats, err := s.search.Fetch(ctx, list.Names(), res.Windows)
	if err != nil {
		return fmt.Errorf("fetch search analytics: %w", err)
	}
	res.Search = records
	s.recordSearchStats(gstats)
	s.count(res, StageSearch, len(records))

	counts, err := s.bucketClicks(res, in.inHouse, in.serpClix)
	if err != nil {
		return err
	}
	res.Clicks = counts

	merged, rstats := reconcile.Join(records, counts, rules)
	res.Merged = merged
	s.metrics.AddDropped(StageMerged, "shallow_page", rstats.ShallowPages)
	s.metrics.AddDropped(StageMerged, "filtered", rstats.Filtered)
	s.log.Info("Reconciled clicks",
		logger.Int("matched", rstats.Matched),
		logger.Int("click_only", rstats.ClickOnly),
		logger.Int("shallow_pages", rstats.ShallowPages),
		logger.Int("filtered", rstats.Filtered),
	)
	s.count(res, StageMerged, len(merged))

	rows, err := report.Build(merged, res.Windows)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	res.Report = rows
	s.count(res, StageReport, len(rows))

	res.RankHistory = s.loadRanks(ctx)
	return nil
}

func (s *Service) loadInputs(ctx context.Context) (inputs, error) {
	var in inputs
	g, gctx := errgroup.WithContext(ctx)
	load := func(name string, dst **table.Table) {
		g.Go(func() error {
			t, err := s.sheets.Fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			*dst = t
			return nil
		})
	}
	load(sheets.Domains, &in.domains)
	load(sheets.FilterRules, &in.rules)
	load(sheets.InHouseClicks, &in.inHouse)
	load(sheets.SerpClixClicks, &in.serpClix)
	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return in, nil
}

// Clicks normalizes and buckets the two click sheets without touching
// analytics or sinks.
func (s *Service) Clicks(ctx context.Context, anchor time.Time) (*Result, error) {
	res := newResult(uuid.New(), anchor, s.now())

	var inHouse, serpClix *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.sheets.Fetch(gctx, sheets.InHouseClicks)
		if err != nil {
			return fmt.Errorf("load %s: %w", sheets.InHouseClicks, err)
		}
		inHouse = t
		return nil
	})
	g.Go(func() error {
		t, err := s.sheets.Fetch(gctx, sheets.SerpClixClicks)
		if err != nil {
			return fmt.Errorf("load %s: %w", sheets.SerpClixClicks, err)
		}
		serpClix = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts, err := s.bucketClicks(res, inHouse, serpClix)
	if err != nil {
		return nil, err
	}
	res.Clicks = counts
	res.FinishedAt = s.now()
	return res, nil
}

func (s *Service) bucketClicks(res *Result, inHouse, serpClix *table.Table) ([]domain.ClickCount, error) {
	ih, ihStats, err := clicks.ParseInHouse(inHouse)
	if err != nil {
		return nil, fmt.Errorf("parse in-house clicks: %w", err)
	}
	s.recordClickStats(StageInHouse, ihStats)
	s.count(res, StageInHouse, ihStats.Kept)

	sc, scStats, err := clicks.ParseSerpClix(serpClix)
	if err != nil {
		return nil, fmt.Errorf("parse serpclix clicks: %w", err)
	}
	s.recordClickStats(StageSerpClix, scStats)
	s.count(res, StageSerpClix, scStats.Kept)

	events := make([]domain.ClickEvent, 0, len(ih)+len(sc))
	events = append(events, ih...)
	events = append(events, sc...)
	counts, outside := clicks.Bucket(events, res.Windows)
	s.metrics.AddDropped(StageClicks, clicks.ReasonOutOfWindow, outside)
	if outside > 0 {
		s.log.Debug("Clicks outside every window", logger.Int("count", outside))
	}
	s.count(res, StageClicks, len(counts))
	return counts, nil
}

// loadRanks loads the history of every configured tracker. A tracker
// that fails is logged and skipped.
func (s *Service) loadRanks(ctx context.Context) []*ranktracker.History {
	if s.ranks == nil || len(s.trackerIDs) == 0 {
		return nil
	}
	var out []*ranktracker.History
	total := 0
	for _, id := range s.trackerIDs {
		h, err := s.ranks.History(ctx, id)
		if err != nil {
			s.log.Warn("Skipping rank history", logger.String("tracker_id", id), logger.Error(err))
			continue
		}
		out = append(out, h)
		total += len(h.Rows)
	}
	s.metrics.SetStageRows(StageRanks, total)
	return out
}

func (s *Service) writeSinks(ctx context.Context, res *Result) error {
	var errs []error
	for _, sink := range s.sinks {
		err := sink.Write(ctx, res)
		s.metrics.RecordSinkWrite(sink.Name(), err)
		if err != nil {
			s.log.Error("Sink write failed", logger.String("sink", sink.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		s.log.Debug("Sink written", logger.String("sink", sink.Name()))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSinks, errors.Join(errs...))
}

func (s *Service) createRun(ctx context.Context, res *Result) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.CreateRun(ctx, res.RunID, res.Anchor, res.StartedAt); err != nil {
		s.log.Warn("Failed to record run start", logger.Error(err))
	}
}

func (s *Service) finishRun(ctx context.Context, res *Result, status string, runErr error) {
	if s.recorder == nil {
		return
	}
	// The run row is closed even when the caller's context is done.
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.FinishRun(ctx, res.RunID, status, len(res.Report), runErr); err != nil {
		s.log.Warn("Failed to record run finish", logger.Error(err))
	}
}

func (s *Service) count(res *Result, stage string, n int) {
	res.Counts[stage] = n
	s.metrics.SetStageRows(stage, n)
	s.log.Info("Stage complete", logger.String("stage", stage), logger.Int("rows", n))
}

// recordSearchStats is the only place Search Console drops are counted
// and missing properties are reported.
func (s *Service) recordSearchStats(st gsc.Stats) {
	if len(st.MissingDomains) > 0 {
		s.log.Warn("Domains without a Search Console property", logger.Strings("domains", st.MissingDomains))
	}
	s.metrics.AddDropped(StageSearch, "pseudo_country", st.DroppedCountry)
	s.metrics.AddDropped(StageSearch, "unknown_country", st.UnknownCountry)
	s.metrics.AddDropped(StageSearch, "duplicate", st.DuplicateRows)
}

func (s *Service) recordClickStats(stage string, st clicks.Stats) {
	for reason, n := range st.Dropped {
		s.metrics.AddDropped(stage, reason, n)
	}
	if st.DroppedTotal() > 0 {
		s.log.Info("Dropped click rows",
			logger.String("stage", stage),
			logger.Int("rows", st.Rows),
			logger.Int("dropped", st.DroppedTotal()),
		)
	}
}
