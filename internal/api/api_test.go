package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/rankrecon/internal/api"
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/storage"
	"github.com/jonesrussell/rankrecon/internal/telemetry"
)

var knownRun = uuid.MustParse("9d2f4e1a-7b3c-4d5e-8f6a-1b2c3d4e5f6a")

type fakeRuns struct {
	limit, offset int
	err           error
}

func (f *fakeRuns) run() *storage.Run {
	return &storage.Run{
		ID:        knownRun,
		Anchor:    time.Date(2023, 3, 17, 0, 0, 0, 0, time.UTC),
		StartedAt: time.Date(2023, 3, 17, 6, 0, 0, 0, time.UTC),
		Status:    "success",
		RowCount:  1,
	}
}

func (f *fakeRuns) ListRuns(_ context.Context, limit, offset int) ([]storage.Run, error) {
	f.limit, f.offset = limit, offset
	if f.err != nil {
		return nil, f.err
	}
	return []storage.Run{*f.run()}, nil
}

func (f *fakeRuns) LatestRun(context.Context) (*storage.Run, error) {
	return f.run(), f.err
}

func (f *fakeRuns) GetRun(_ context.Context, id uuid.UUID) (*storage.Run, error) {
	if id != knownRun {
		return nil, fmt.Errorf("run %s: %w", id, storage.ErrNotFound)
	}
	return f.run(), nil
}

func (f *fakeRuns) ListRows(_ context.Context, _ uuid.UUID, limit, offset int) ([]domain.ReportRow, error) {
	f.limit, f.offset = limit, offset
	return []domain.ReportRow{{Query: "red shoes", CurrentRank: domain.NewRank(4), Country: "US"}}, nil
}

func newServer(t *testing.T, runs api.RunReader, checks map[string]api.HealthChecker) *api.Server {
	t.Helper()
	return api.NewServer(api.Config{ServiceName: "rankrecon", ServiceVersion: "test"}, runs, checks, telemetry.New(), nil)
}

func do(t *testing.T, srv *api.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWindows(t *testing.T) {
	t.Helper()

	srv := newServer(t, nil, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/windows?anchor=2023-03-17")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2023-03-17", body["anchor"])

	ws, ok := body["windows"].([]any)
	require.True(t, ok)
	require.Len(t, ws, 6)
	first := ws[0].(map[string]any)
	assert.Equal(t, "current_rank", first["column"])
	assert.Equal(t, "2023-01-31:2023-03-01", first["label"])

	rec = do(t, srv, http.MethodGet, "/api/v1/windows?anchor=03/17/2023")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	t.Helper()

	runs := &fakeRuns{}
	srv := newServer(t, runs, nil)

	testCases := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "list", path: "/api/v1/runs?limit=5&offset=2", wantCode: http.StatusOK, wantBody: knownRun.String()},
		{name: "latest", path: "/api/v1/runs/latest", wantCode: http.StatusOK, wantBody: `"status":"success"`},
		{name: "get", path: "/api/v1/runs/" + knownRun.String(), wantCode: http.StatusOK, wantBody: `"row_count":1`},
		{name: "get unknown", path: "/api/v1/runs/" + uuid.NewString(), wantCode: http.StatusNotFound},
		{name: "bad id", path: "/api/v1/runs/not-a-uuid", wantCode: http.StatusBadRequest},
		{name: "rows", path: "/api/v1/runs/" + knownRun.String() + "/rows", wantCode: http.StatusOK, wantBody: `"current_rank":4`},
		{name: "rows unknown run", path: "/api/v1/runs/" + uuid.NewString() + "/rows", wantCode: http.StatusNotFound},
		{name: "bad limit", path: "/api/v1/runs?limit=-1", wantCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tc.path)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRuns_Pagination(t *testing.T) {
	t.Helper()

	runs := &fakeRuns{}
	srv := newServer(t, runs, nil)

	do(t, srv, http.MethodGet, "/api/v1/runs?limit=5&offset=2")
	assert.Equal(t, 5, runs.limit)
	assert.Equal(t, 2, runs.offset)

	do(t, srv, http.MethodGet, "/api/v1/runs/"+knownRun.String()+"/rows?limit=99999")
	assert.Equal(t, storage.MaxListLimit, runs.limit)

	do(t, srv, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, storage.DefaultListLimit, runs.limit)
}

func TestRuns_StoreErrors(t *testing.T) {
	t.Helper()

	srv := newServer(t, &fakeRuns{err: errors.New("connection reset")}, nil)
	rec := do(t, srv, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	srv = newServer(t, &fakeRuns{err: fmt.Errorf("latest run: %w", storage.ErrNotFound)}, nil)
	rec = do(t, srv, http.MethodGet, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuns_NoStore(t *testing.T) {
	t.Helper()

	srv := newServer(t, nil, nil)
	rec := do(t, srv, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Helper()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	srv := newServer(t, nil, map[string]api.HealthChecker{
		"database": api.PingChecker("Database", api.HealthStatusUnhealthy, ok),
		"redis":    api.PingChecker("Redis", api.HealthStatusDegraded, down),
	})
	rec := do(t, srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "rankrecon", body["service"])

	srv = newServer(t, nil, map[string]api.HealthChecker{
		"database": api.PingChecker("Database", api.HealthStatusUnhealthy, down),
	})
	rec = do(t, srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsAndRequestID(t *testing.T) {
	t.Helper()

	srv := newServer(t, nil, nil)
	do(t, srv, http.MethodGet, "/api/v1/windows?anchor=2023-03-17")

	rec := do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/api/v1/windows"`))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
