package gsc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/geo"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/telemetry"
	"github.com/jonesrussell/rankrecon/internal/urlnorm"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// FetcherConfig tunes request pacing.
type FetcherConfig struct {
	RequestsPerSecond float64
	Burst             int
	Concurrency       int
}

// Stats counts what normalization removed.
type Stats struct {
	Properties     int
	MissingDomains []string
	RawRows        int
	DroppedCountry int
	UnknownCountry int
	DuplicateRows  int
	NormalizedRows int
}

// Fetcher queries every viable property for every window and normalizes
// the result into search records.
type Fetcher struct {
	q           Querier
	limiter     *rate.Limiter
	concurrency int
	log         logger.Logger
	metrics     *telemetry.Metrics
}

// NewFetcher builds a Fetcher. A nil metrics value disables recording.
func NewFetcher(q Querier, cfg FetcherConfig, log logger.Logger, metrics *telemetry.Metrics) *Fetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	conc := max(cfg.Concurrency, 1)
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		q:           q,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: conc,
		log:         log,
		metrics:     metrics,
	}
}

type job struct {
	site  string
	win   window.Window
	index int
}

// Fetch returns normalized records for domains over windows. Records are
// ordered by property, then window, then API row order.
func (f *Fetcher) Fetch(ctx context.Context, domains []string, windows []window.Window) ([]domain.SearchRecord, Stats, error) {
	var stats Stats

	sites, err := f.q.Sites(ctx)
	if err != nil {
		return nil, stats, err
	}

	props, missing := ViableProperties(domains, sites)
	stats.Properties = len(props)
	stats.MissingDomains = missing
	if len(props) == 0 {
		return nil, stats, ErrNoProperties
	}

	jobs := make([]job, 0, len(props)*len(windows))
	for _, p := range props {
		for _, w := range windows {
			jobs = append(jobs, job{site: p, win: w, index: len(jobs)})
		}
	}

	results := make([][]Row, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if werr := f.limiter.Wait(gctx); werr != nil {
				return werr
			}
			start := time.Now()
			rows, qerr := f.q.Query(gctx, j.site, j.win)
			f.metrics.RecordGSCRequest(qerr, time.Since(start))
			if qerr != nil {
				return fmt.Errorf("fetch gsc: %w", qerr)
			}
			f.log.Debug("Fetched search analytics",
				logger.String("site", j.site),
				logger.String("date_range", j.win.Label()),
				logger.Int("rows", len(rows)),
			)
			results[j.index] = rows
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, stats, err
	}

	out := make([]domain.SearchRecord, 0)
	seen := make(map[dedupeKey]struct{})
	for i, rows := range results {
		w := jobs[i].win
		for _, r := range rows {
			stats.RawRows++
			rec, reason := normalize(r, w)
			switch reason {
			case dropPseudoCountry:
				stats.DroppedCountry++
				continue
			case dropUnknownCountry:
				stats.UnknownCountry++
				continue
			}
			k := dedupeKey{rec.Query, rec.Page, rec.Country, w.Label()}
			if _, dup := seen[k]; dup {
				stats.DuplicateRows++
				continue
			}
			seen[k] = struct{}{}
			out = append(out, rec)
		}
	}
	stats.NormalizedRows = len(out)
	return out, stats, nil
}

type dedupeKey struct {
	query, page, country, window string
}

type dropReason int

const (
	keep dropReason = iota
	dropPseudoCountry
	dropUnknownCountry
)

func normalize(r Row, w window.Window) (domain.SearchRecord, dropReason) {
	if geo.IsDroppedGSCCountry(r.Country) {
		return domain.SearchRecord{}, dropPseudoCountry
	}
	iso, ok := geo.ToISO2(r.Country)
	if !ok {
		return domain.SearchRecord{}, dropUnknownCountry
	}
	return domain.SearchRecord{
		Query:       strings.TrimSpace(r.Query),
		Page:        r.Page,
		Country:     iso,
		Clicks:      r.Clicks,
		Impressions: r.Impressions,
		CTR:         r.CTR,
		Position:    r.Position,
		Window:      w,
		Domain:      urlnorm.RegisteredDomain(r.Page),
	}, keep
}
