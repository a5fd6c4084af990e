// Package telemetry exports rankrecon Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rankrecon"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	StageRows   *prometheus.GaugeVec
	DroppedRows *prometheus.CounterVec

	// Search Console metrics
	GSCRequests        *prometheus.CounterVec
	GSCRequestDuration prometheus.Histogram
	GSCCacheLookups    *prometheus.CounterVec

	// Sink metrics
	SinkWrites *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{registry: reg}
	initRunMetrics(f, m)
	initGSCMetrics(f, m)

	m.SinkWrites = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_writes_total",
		Help:      "Sink writes by sink and status",
	}, []string{"sink", "status"})

	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Viewer API requests by route and status code",
	}, []string{"route", "code"})

	return m
}

func initRunMetrics(f promauto.Factory, m *Metrics) {
	m.RunsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Report runs by final status",
	}, []string{"status"})

	m.RunDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a report run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	m.StageRows = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_rows",
		Help:      "Rows produced by each stage of the last run",
	}, []string{"stage"})

	m.DroppedRows = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_rows_total",
		Help:      "Input rows discarded during normalization",
	}, []string{"stage", "reason"})
}

func initGSCMetrics(f promauto.Factory, m *Metrics) {
	m.GSCRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gsc_requests_total",
		Help:      "Search Console queries by status",
	}, []string{"status"})

	m.GSCRequestDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gsc_request_duration_seconds",
		Help:      "Search Console query latency",
		Buckets:   prometheus.DefBuckets,
	})

	m.GSCCacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gsc_cache_lookups_total",
		Help:      "GSC cache lookups by result",
	}, []string{"result"})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// SetStageRows records a stage's output size.
func (m *Metrics) SetStageRows(stage string, rows int) {
	if m == nil {
		return
	}
	m.StageRows.WithLabelValues(stage).Set(float64(rows))
}

// AddDropped counts rows discarded for reason.
func (m *Metrics) AddDropped(stage, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedRows.WithLabelValues(stage, reason).Add(float64(n))
}

// RecordGSCRequest counts one Search Console query.
func (m *Metrics) RecordGSCRequest(err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GSCRequests.WithLabelValues(status).Inc()
	m.GSCRequestDuration.Observe(d.Seconds())
}

// RecordCacheLookup counts a GSC cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.GSCCacheLookups.WithLabelValues(result).Inc()
}

// RecordSinkWrite counts a sink write.
func (m *Metrics) RecordSinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SinkWrites.WithLabelValues(sink, status).Inc()
}

// RecordHTTPRequest counts an API request.
func (m *Metrics) RecordHTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
