package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
	"github.com/jonesrussell/rankrecon/internal/storage"
)

var (
	runID   = uuid.MustParse("0b3e8f4a-5c6d-4e7f-8a9b-0c1d2e3f4a5b")
	started = time.Date(2023, 3, 17, 6, 0, 0, 0, time.UTC)
	anchor  = time.Date(2023, 3, 17, 0, 0, 0, 0, time.UTC)
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return storage.NewStore(sqlx.NewDb(db, "postgres")), mock
}

func reportRows(n int) []domain.ReportRow {
	rows := make([]domain.ReportRow, n)
	for i := range rows {
		rows[i] = domain.ReportRow{
			Query: "red shoes", CurrentRank: domain.NewRank(4), Page: "https://example.com/shoes/",
			Country: "US", DateRange: "2023-01-31:2023-03-01", Domain: "example.com", AdjustedClicks: float64(n - i),
		}
	}
	return rows
}

func TestStore_CreateRun(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_runs (id, anchor, started_at, status)")).
		WithArgs(runID.String(), anchor, started, pipeline.StatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.CreateRun(context.Background(), runID, anchor, started))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FinishRun(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name     string
		runErr   error
		wantMsg  any
		affected int64
		wantErr  error
	}{
		{name: "success", wantMsg: nil, affected: 1},
		{name: "failure message stored", runErr: errors.New("boom"), wantMsg: "boom", affected: 1},
		{name: "unknown run", affected: 0, wantErr: storage.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectExec(regexp.QuoteMeta("UPDATE report_runs SET finished_at = NOW()")).
				WithArgs(runID.String(), pipeline.StatusSuccess, 3, tc.wantMsg).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := store.FinishRun(context.Background(), runID, pipeline.StatusSuccess, 3, tc.runErr)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_InsertRows_Batches(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_rows")).
		WillReturnResult(sqlmock.NewResult(0, 100))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_rows")).
		WillReturnResult(sqlmock.NewResult(0, 20))
	mock.ExpectCommit()

	require.NoError(t, store.InsertRows(context.Background(), runID, reportRows(120)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertRows_Placeholders(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	rows := reportRows(2)
	rows[1].CurrentRank = domain.Rank{}
	rows[1].PreviousRank[0] = domain.NewRank(9)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17), " +
		"($18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)")).
		WithArgs(
			runID.String(), "red shoes", "https://example.com/shoes/", "US", "example.com", "2023-01-31:2023-03-01",
			4.0, nil, nil, nil, nil, nil, 0.0, 0.0, 0, 0, 2.0,
			runID.String(), "red shoes", "https://example.com/shoes/", "US", "example.com", "2023-01-31:2023-03-01",
			nil, 9.0, nil, nil, nil, nil, 0.0, 0.0, 0, 0, 1.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, store.InsertRows(context.Background(), runID, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertRows_RollsBack(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_rows")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := store.InsertRows(context.Background(), runID, reportRows(1))
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertRows_Empty(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	require.NoError(t, store.InsertRows(context.Background(), runID, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Write(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_rows")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := &pipeline.Result{RunID: runID, Report: reportRows(1)}
	require.NoError(t, store.Write(context.Background(), res))
	assert.Equal(t, "postgres", store.Name())
	require.NoError(t, mock.ExpectationsWereMet())
}

var runCols = []string{"id", "anchor", "started_at", "finished_at", "status", "row_count", "error"}

func TestStore_GetRun(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	finished := started.Add(time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_runs WHERE id = $1")).
		WithArgs(runID.String()).
		WillReturnRows(sqlmock.NewRows(runCols).
			AddRow(runID.String(), anchor, started, finished, pipeline.StatusSuccess, 12, nil))

	run, err := store.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, 12, run.RowCount)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))
	assert.Nil(t, run.Error)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_runs WHERE id = $1")).WillReturnError(sql.ErrNoRows)
	_, err = store.GetRun(context.Background(), runID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LatestRun(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ($1, $2) ORDER BY started_at DESC LIMIT 1")).
		WithArgs(pipeline.StatusSuccess, pipeline.StatusPartial).
		WillReturnRows(sqlmock.NewRows(runCols).
			AddRow(runID.String(), anchor, started, nil, pipeline.StatusPartial, 3, "file: disk full"))

	run, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusPartial, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, "file: disk full", *run.Error)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRuns_ClampsPage(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(storage.MaxListLimit, 0).
		WillReturnRows(sqlmock.NewRows(runCols))

	runs, err := store.ListRuns(context.Background(), 1_000_000, -5)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRows(t *testing.T) {
	t.Helper()

	store, mock := newMockStore(t)
	cols := []string{
		"query", "page", "country", "domain", "date_range", "current_rank",
		"previous_rank_1", "previous_rank_2", "previous_rank_3", "previous_rank_4", "previous_rank_5",
		"impressions", "clicks", "in_house_clicks", "serpclix_clicks", "adjusted_clicks",
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_rows WHERE run_id = $1")).
		WithArgs(runID.String(), storage.DefaultListLimit, 10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"red shoes", "https://example.com/shoes/", "US", "example.com", "2023-01-31:2023-03-01",
			nil, 5.0, nil, nil, nil, 11.0, 300.0, 20.0, 2, 0, 18.0,
		))

	rows, err := store.ListRows(context.Background(), runID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].CurrentRank.Valid)
	assert.Equal(t, domain.NewRank(5), rows[0].PreviousRank[0])
	assert.Equal(t, domain.NewRank(11), rows[0].PreviousRank[4])
	assert.InDelta(t, 18, rows[0].AdjustedClicks, 0)
	require.NoError(t, mock.ExpectationsWereMet())
}
