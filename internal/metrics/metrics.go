// Package metrics exposes Prometheus collectors for builds, the loaded
// index and the query server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/smtindex/pkg/index"
)

const namespace = "smtindex"

// Metrics holds every collector. Each instance owns its registry, so
// tests and multiple servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	buildDuration  prometheus.Histogram
	builds         *prometheus.CounterVec
	sourceRecords  *prometheus.GaugeVec
	mergeWarnings  *prometheus.CounterVec
	templates      *prometheus.GaugeVec
	versions       prometheus.Gauge
	generated      prometheus.Gauge
	reloads        *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of index builds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Index builds by result.",
		}, []string{"result"}),
		sourceRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_records",
			Help:      "Records fetched from each source in the last build.",
		}, []string{"source"}),
		mergeWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_warnings_total",
			Help:      "Data-quality warnings raised while merging, by code.",
		}, []string{"code"}),
		templates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates",
			Help:      "Templates in the current index, by status.",
		}, []string{"status"}),
		versions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "versions",
			Help:      "Versions in the current index.",
		}),
		generated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_generated_timestamp_seconds",
			Help:      "Generation time of the current index.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_reloads_total",
			Help:      "Index reloads by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Query API requests by route and status code.",
		}, []string{"route", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Query API latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.buildDuration, m.builds, m.sourceRecords, m.mergeWarnings,
		m.templates, m.versions, m.generated, m.reloads,
		m.requests, m.requestLatency,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild records a finished build.
func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.builds.WithLabelValues(result).Inc()
	m.buildDuration.Observe(d.Seconds())
}

// SetSourceRecords records how many records a source delivered.
func (m *Metrics) SetSourceRecords(source string, n int) {
	m.sourceRecords.WithLabelValues(source).Set(float64(n))
}

// AddMergeWarning counts one merge warning.
func (m *Metrics) AddMergeWarning(code string) {
	m.mergeWarnings.WithLabelValues(code).Inc()
}

// SetIndex replaces the index gauges with the counts of idx.
func (m *Metrics) SetIndex(idx *index.Index) {
	m.templates.Reset()
	if idx == nil {
		m.versions.Set(0)
		m.generated.Set(0)
		return
	}
	for _, t := range idx.Templates {
		m.templates.WithLabelValues(string(t.Status)).Inc()
	}
	m.versions.Set(float64(idx.VersionCount()))
	m.generated.Set(float64(idx.GeneratedAt.Unix()))
}

// ObserveReload counts an index reload.
func (m *Metrics) ObserveReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestLatency.WithLabelValues(route).Observe(d.Seconds())
}
