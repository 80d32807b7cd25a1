// Package metrics defines the service's prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/extract"
	"github.com/dgallion1/resumedit/internal/lines"
)

// Metrics holds every collector, registered on its own registry so tests
// can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	saves          *prometheus.CounterVec
	savedLines     prometheus.Counter
	fallbacks      prometheus.Counter
	analyses       *prometheus.CounterVec
	analysisTime   *prometheus.HistogramVec
	openSessions   prometheus.GaugeFunc
}

// New creates and registers the collectors. sessions reports the number
// of open editing sessions; it may be nil.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumedit_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resumedit_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumedit_backend_requests_total",
			Help: "Resume backend calls by operation and status code (0 for transport errors).",
		}, []string{"op", "code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resumedit_backend_request_duration_seconds",
			Help:    "Resume backend call latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumedit_saves_total",
			Help: "Document saves by mode and outcome.",
		}, []string{"mode", "outcome"}),
		savedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resumedit_saved_lines_total",
			Help: "Changed lines sent in batch updates.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resumedit_markdown_fallbacks_total",
			Help: "Documents opened in plain mode because markdown conversion failed.",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resumedit_line_analyses_total",
			Help: "Line analysis runs by analyzer and outcome.",
		}, []string{"analyzer", "outcome"}),
		analysisTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resumedit_line_analysis_duration_seconds",
			Help:    "Line analysis latency by analyzer.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"analyzer"}),
	}
	if sessions == nil {
		sessions = func() int { return 0 }
	}
	m.openSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "resumedit_open_sessions",
		Help: "Editing sessions currently held in memory.",
	}, func() float64 { return float64(sessions()) })

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.backendCalls, m.backendLatency,
		m.saves, m.savedLines, m.fallbacks,
		m.analyses, m.analysisTime,
		m.openSessions,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveBackend records one resume backend call. Its signature matches
// resumeapi.ObserveFunc.
func (m *Metrics) ObserveBackend(op string, code int, elapsed time.Duration) {
	m.backendCalls.WithLabelValues(op, strconv.Itoa(code)).Inc()
	m.backendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Save outcomes.
const (
	SaveSaved     = "saved"
	SaveNoChanges = "no_changes"
	SaveFailed    = "failed"
	SaveConflict  = "conflict"
)

// ObserveSave records one save attempt and the number of lines it sent.
func (m *Metrics) ObserveSave(mode, outcome string, changed int) {
	m.saves.WithLabelValues(mode, outcome).Inc()
	if outcome == SaveSaved && changed > 0 {
		m.savedLines.Add(float64(changed))
	}
}

// MarkdownFallback records a document that degraded to plain mode.
func (m *Metrics) MarkdownFallback() {
	m.fallbacks.Inc()
}

// InstrumentAnalyzer wraps a so every run is counted and timed.
func (m *Metrics) InstrumentAnalyzer(a extract.Analyzer) extract.Analyzer {
	return &instrumented{Analyzer: a, m: m}
}

type instrumented struct {
	extract.Analyzer
	m *Metrics
}

func (i *instrumented) AnalyzeLines(ctx context.Context, ls []lines.Line) ([]analysis.LineAnalysis, error) {
	start := time.Now()
	out, err := i.Analyzer.AnalyzeLines(ctx, ls)
	name := i.Analyzer.Name()
	i.m.analysisTime.WithLabelValues(name).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.m.analyses.WithLabelValues(name, outcome).Inc()
	return out, err
}
