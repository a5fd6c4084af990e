package telemetry_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonesrussell/rankrecon/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	t.Helper()

	m := telemetry.New()
	m.RecordRun("success", 2*time.Second)
	m.RecordRun("failed", time.Second)
	m.SetStageRows("report", 42)
	m.AddDropped("clicks", "unknown_country", 3)
	m.AddDropped("clicks", "unknown_country", 0)
	m.RecordGSCRequest(nil, time.Millisecond)
	m.RecordGSCRequest(errors.New("boom"), time.Millisecond)
	m.RecordCacheLookup(true)
	m.RecordSinkWrite("file", nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(m.StageRows.WithLabelValues("report")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.DroppedRows.WithLabelValues("clicks", "unknown_country")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GSCRequests.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GSCCacheLookups.WithLabelValues("hit")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Helper()

	var m *telemetry.Metrics
	m.RecordRun("success", time.Second)
	m.SetStageRows("report", 1)
	m.RecordCacheLookup(false)
	m.RecordSinkWrite("file", errors.New("x"))
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	t.Helper()

	m := telemetry.New()
	m.RecordRun("success", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rankrecon_runs_total")
}
