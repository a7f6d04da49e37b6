// Package metrics defines the Prometheus collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid for the
// helper methods below, so components can be built without instrumentation.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	SearchResultsCount  *prometheus.HistogramVec
	SearchSkippedDocs   prometheus.Counter
	SearchSuperseded    prometheus.Counter
	DocumentFetchErrors *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	DocsReindexedTotal  *prometheus.CounterVec
	IndexDocuments      prometheus.Gauge
	IndexTags           prometheus.Gauge
	IndexPersistsTotal  *prometheus.CounterVec
	IndexLoadsTotal     *prometheus.CounterVec
	IndexRepairsTotal   prometheus.Counter
	DocumentEventsTotal *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and prometheus.NewRegistry() in
// tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by kind (tag, text, empty) and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"kind"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of documents returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"kind"},
		),
		SearchSkippedDocs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_skipped_documents_total",
				Help: "Documents left out of a text search because their content could not be fetched.",
			},
		),
		SearchSuperseded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_superseded_total",
				Help: "Searches discarded because a newer query started in the same session.",
			},
		),
		DocumentFetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_fetch_errors_total",
				Help: "Document store failures by backend and operation.",
			},
			[]string{"backend", "op"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocsReindexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tag_index_documents_reindexed_total",
				Help: "Documents reindexed or removed from the tag index, by operation.",
			},
			[]string{"op"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tag_index_documents",
				Help: "Documents with a metadata row in the tag index.",
			},
		),
		IndexTags: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tag_index_tags",
				Help: "Distinct tags in the tag index.",
			},
		),
		IndexPersistsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tag_index_persists_total",
				Help: "Tag index persistence attempts by status.",
			},
			[]string{"status"},
		),
		IndexLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tag_index_loads_total",
				Help: "Tag index loads by outcome (loaded, empty, corrupt, error).",
			},
			[]string{"outcome"},
		),
		IndexRepairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tag_index_repairs_total",
				Help: "Inconsistent entries dropped while loading the tag index.",
			},
		),
		DocumentEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_events_total",
				Help: "Document change events consumed by type and status.",
			},
			[]string{"type", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchSkippedDocs,
		m.SearchSuperseded,
		m.DocumentFetchErrors,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsReindexedTotal,
		m.IndexDocuments,
		m.IndexTags,
		m.IndexPersistsTotal,
		m.IndexLoadsTotal,
		m.IndexRepairsTotal,
		m.DocumentEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

func (m *Metrics) ObserveReindex(op string) {
	if m == nil {
		return
	}
	m.DocsReindexedTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) ObservePersist(status string) {
	if m == nil {
		return
	}
	m.IndexPersistsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLoad(outcome string, repaired int) {
	if m == nil {
		return
	}
	m.IndexLoadsTotal.WithLabelValues(outcome).Inc()
	if repaired > 0 {
		m.IndexRepairsTotal.Add(float64(repaired))
	}
}

func (m *Metrics) SetIndexSize(documents, tags int) {
	if m == nil {
		return
	}
	m.IndexDocuments.Set(float64(documents))
	m.IndexTags.Set(float64(tags))
}

func (m *Metrics) ObserveSearch(kind, outcome string, seconds float64, results, skipped int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(kind, outcome).Inc()
	m.SearchLatency.WithLabelValues(kind).Observe(seconds)
	m.SearchResultsCount.WithLabelValues(kind).Observe(float64(results))
	if skipped > 0 {
		m.SearchSkippedDocs.Add(float64(skipped))
	}
}

func (m *Metrics) ObserveSuperseded() {
	if m == nil {
		return
	}
	m.SearchSuperseded.Inc()
}

func (m *Metrics) ObserveFetchError(backend, op string) {
	if m == nil {
		return
	}
	m.DocumentFetchErrors.WithLabelValues(backend, op).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) ObserveEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.DocumentEventsTotal.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
