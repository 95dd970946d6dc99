package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBuckets returns duration buckets from milliseconds to tens of minutes.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800}
}

// ForgeMetrics contains the import and union-find metrics.
type ForgeMetrics struct {
	Registry *prometheus.Registry

	// Import metrics
	ImportsTotal         *prometheus.CounterVec
	ImportErrorsTotal    prometheus.Counter
	ImportDuration       *prometheus.HistogramVec
	NodesImportedTotal   prometheus.Counter
	RelationshipsTotal   prometheus.Counter
	SkippedRelationships prometheus.Counter
	LastImportNodes      prometheus.Gauge

	// Union-find metrics
	UnionFindRunsTotal   *prometheus.CounterVec
	UnionFindErrorsTotal prometheus.Counter
	UnionFindDuration    *prometheus.HistogramVec
	SetCount             prometheus.Gauge

	// Active workers gauge
	ActiveWorkers prometheus.Gauge
}

// NewForgeMetrics creates forge metrics on a private registry.
func NewForgeMetrics() *ForgeMetrics {
	r := prometheus.NewRegistry()
	f := promauto.With(r)

	return &ForgeMetrics{
		Registry: r,

		// Import
		ImportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_imports_total",
			Help: "Total graph imports",
		}, []string{"variant", "direction"}),
		ImportErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_import_errors_total",
			Help: "Total failed graph imports",
		}),
		ImportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_import_duration_seconds",
			Help:    "Graph import duration",
			Buckets: DefaultBuckets(),
		}, []string{"variant"}),
		NodesImportedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_nodes_imported_total",
			Help: "Total nodes imported",
		}),
		RelationshipsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_relationships_imported_total",
			Help: "Total relationship entries materialized",
		}),
		SkippedRelationships: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_relationships_skipped_total",
			Help: "Relationships dropped because an endpoint is not an imported node",
		}),
		LastImportNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "forge_last_import_nodes",
			Help: "Node count of the most recent import",
		}),

		// Union-find
		UnionFindRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_unionfind_runs_total",
			Help: "Total union-find runs",
		}, []string{"strategy"}),
		UnionFindErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_unionfind_errors_total",
			Help: "Total failed union-find runs",
		}),
		UnionFindDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_unionfind_duration_seconds",
			Help:    "Union-find run duration",
			Buckets: DefaultBuckets(),
		}, []string{"strategy"}),
		SetCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "forge_unionfind_set_count",
			Help: "Number of disjoint sets found by the latest run",
		}),

		// Workers
		ActiveWorkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "forge_active_workers",
			Help: "Number of active import or union-find workers",
		}),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *ForgeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordImport records a graph import.
func (m *ForgeMetrics) RecordImport(variant, direction string, duration time.Duration, nodes, relationships, skipped int64, err error) {
	if err != nil {
		m.ImportErrorsTotal.Inc()
		return
	}
	m.ImportsTotal.WithLabelValues(variant, direction).Inc()
	m.ImportDuration.WithLabelValues(variant).Observe(duration.Seconds())
	m.NodesImportedTotal.Add(float64(nodes))
	m.RelationshipsTotal.Add(float64(relationships))
	m.SkippedRelationships.Add(float64(skipped))
	m.LastImportNodes.Set(float64(nodes))
}

// RecordUnionFind records a union-find run.
func (m *ForgeMetrics) RecordUnionFind(strategy string, duration time.Duration, setCount int64, err error) {
	if err != nil {
		m.UnionFindErrorsTotal.Inc()
		return
	}
	m.UnionFindRunsTotal.WithLabelValues(strategy).Inc()
	m.UnionFindDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.SetCount.Set(float64(setCount))
}

// TrackWorker increments the active worker gauge and returns a func that
// decrements it.
func (m *ForgeMetrics) TrackWorker() func() {
	m.ActiveWorkers.Inc()
	return m.ActiveWorkers.Dec
}

// Global metrics instance
var globalMetrics *ForgeMetrics
var metricsOnce sync.Once

// Metrics returns the global metrics instance.
func Metrics() *ForgeMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewForgeMetrics()
	})
	return globalMetrics
}
