// Package storage persists report runs and their rows in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
)

const (
	// columnsPerRow is the number of columns inserted per report row.
	columnsPerRow = 17

	// insertBatchSize is the maximum number of rows per INSERT statement.
	insertBatchSize = 100

	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second

	// DefaultListLimit caps list queries without an explicit limit.
	DefaultListLimit = 100
	// MaxListLimit is the largest page a list query returns.
	MaxListLimit = 1000
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run is one stored pipeline run.
type Run struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	Anchor     time.Time  `db:"anchor"      json:"anchor"`
	StartedAt  time.Time  `db:"started_at"  json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Status     string     `db:"status"      json:"status"`
	RowCount   int        `db:"row_count"   json:"row_count"`
	Error      *string    `db:"error"       json:"error,omitempty"`
}

// row mirrors report_rows.
type row struct {
	Query          string          `db:"query"`
	Page           string          `db:"page"`
	Country        string          `db:"country"`
	Domain         string          `db:"domain"`
	DateRange      string          `db:"date_range"`
	CurrentRank    sql.NullFloat64 `db:"current_rank"`
	PreviousRank1  sql.NullFloat64 `db:"previous_rank_1"`
	PreviousRank2  sql.NullFloat64 `db:"previous_rank_2"`
	PreviousRank3  sql.NullFloat64 `db:"previous_rank_3"`
	PreviousRank4  sql.NullFloat64 `db:"previous_rank_4"`
	PreviousRank5  sql.NullFloat64 `db:"previous_rank_5"`
	Impressions    float64         `db:"impressions"`
	Clicks         float64         `db:"clicks"`
	InHouseClicks  int             `db:"in_house_clicks"`
	SerpClixClicks int             `db:"serpclix_clicks"`
	AdjustedClicks float64         `db:"adjusted_clicks"`
}

func (r row) toReport() domain.ReportRow {
	out := domain.ReportRow{
		Query:          r.Query,
		CurrentRank:    fromNull(r.CurrentRank),
		Impressions:    r.Impressions,
		Clicks:         r.Clicks,
		InHouseClicks:  r.InHouseClicks,
		SerpClixClicks: r.SerpClixClicks,
		AdjustedClicks: r.AdjustedClicks,
		Page:           r.Page,
		Country:        r.Country,
		DateRange:      r.DateRange,
		Domain:         r.Domain,
	}
	prev := []sql.NullFloat64{r.PreviousRank1, r.PreviousRank2, r.PreviousRank3, r.PreviousRank4, r.PreviousRank5}
	for i, p := range prev {
		out.PreviousRank[i] = fromNull(p)
	}
	return out
}

func fromNull(n sql.NullFloat64) domain.Rank {
	if !n.Valid {
		return domain.Rank{}
	}
	return domain.NewRank(n.Float64)
}

func toNull(r domain.Rank) sql.NullFloat64 {
	return sql.NullFloat64{Float64: r.Value, Valid: r.Valid}
}

// Connect opens and pings a PostgreSQL pool.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Store reads and writes report runs.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Name implements pipeline.Sink.
func (s *Store) Name() string { return "postgres" }

// Write implements pipeline.Sink by storing the report rows of res.
func (s *Store) Write(ctx context.Context, res *pipeline.Result) error {
	return s.InsertRows(ctx, res.RunID, res.Report)
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, id uuid.UUID, anchor, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_runs (id, anchor, started_at, status) VALUES ($1, $2, $3, $4)`,
		id, anchor, startedAt, pipeline.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its status, row count and error.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, status string, rowCount int, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE report_runs SET finished_at = NOW(), status = $2, row_count = $3, error = $4 WHERE id = $1`,
		id, status, rowCount, msg,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertRows stores rows for runID in one transaction, insertBatchSize
// rows per statement.
func (s *Store) InsertRows(ctx context.Context, runID uuid.UUID, rows []domain.ReportRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert rows: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err = batchInsert(ctx, tx, runID, rows[start:end]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert rows: %w", err)
	}
	return nil
}

const insertRowsPrefix = "INSERT INTO report_rows (run_id, query, page, country, domain, date_range, " +
	"current_rank, previous_rank_1, previous_rank_2, previous_rank_3, previous_rank_4, previous_rank_5, " +
	"impressions, clicks, in_house_clicks, serpclix_clicks, adjusted_clicks) VALUES "

// batchInsert builds and executes a single INSERT statement with multiple value tuples.
func batchInsert(ctx context.Context, tx *sqlx.Tx, runID uuid.UUID, rows []domain.ReportRow) error {
	args := make([]any, 0, len(rows)*columnsPerRow)
	var sb strings.Builder
	sb.WriteString(insertRowsPrefix)

	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeValueTuple(&sb, i)

		args = append(args, runID, r.Query, r.Page, r.Country, r.Domain, r.DateRange, toNull(r.CurrentRank))
		for _, p := range r.PreviousRank {
			args = append(args, toNull(p))
		}
		args = append(args, r.Impressions, r.Clicks, r.InHouseClicks, r.SerpClixClicks, r.AdjustedClicks)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("exec batch insert: %w", err)
	}
	return nil
}

// writeValueTuple writes one ($1, ..., $17) placeholder tuple offset by
// the row index.
func writeValueTuple(sb *strings.Builder, rowIndex int) {
	base := rowIndex * columnsPerRow
	sb.WriteByte('(')
	for c := 1; c <= columnsPerRow; c++ {
		if c > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", base+c)
	}
	sb.WriteByte(')')
}

const runColumns = "id, anchor, started_at, finished_at, status, row_count, error"

// GetRun returns the run with id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM report_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// LatestRun returns the newest run that finished successfully or with
// only sink failures.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run,
		`SELECT `+runColumns+` FROM report_runs WHERE status IN ($1, $2) ORDER BY started_at DESC LIMIT 1`,
		pipeline.StatusSuccess, pipeline.StatusPartial,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	limit, offset = clampPage(limit, offset)
	runs := make([]Run, 0)
	err := s.db.SelectContext(ctx, &runs,
		`SELECT `+runColumns+` FROM report_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListRows returns a page of a run's report rows in report order.
func (s *Store) ListRows(ctx context.Context, runID uuid.UUID, limit, offset int) ([]domain.ReportRow, error) {
	limit, offset = clampPage(limit, offset)
	var stored []row
	err := s.db.SelectContext(ctx, &stored,
		`SELECT query, page, country, domain, date_range, current_rank, previous_rank_1, previous_rank_2,
			previous_rank_3, previous_rank_4, previous_rank_5, impressions, clicks, in_house_clicks,
			serpclix_clicks, adjusted_clicks
		FROM report_rows WHERE run_id = $1
		ORDER BY adjusted_clicks DESC, query, page, country
		LIMIT $2 OFFSET $3`,
		runID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}

	out := make([]domain.ReportRow, 0, len(stored))
	for _, r := range stored {
		out = append(out, r.toReport())
	}
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return min(limit, MaxListLimit), max(offset, 0)
}
