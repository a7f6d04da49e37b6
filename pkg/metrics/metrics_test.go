package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReindex("reindex")
		m.ObservePersist("ok")
		m.ObserveLoad("corrupt", 3)
		m.SetIndexSize(1, 2)
		m.ObserveSearch("text", "ok", 0.01, 1, 1)
		m.ObserveSuperseded()
		m.ObserveCache(true)
		m.ObserveEvent("saved", "ok")
		m.SetBreakerState("docs", 1)
	})
}

func TestObserversUpdateCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReindex("remove")
	m.ObserveLoad("loaded", 2)
	m.SetIndexSize(4, 9)
	m.ObserveSearch("text", "ok", 0.02, 3, 2)
	m.ObserveCache(false)

	values := gather(t, reg)
	assert.Equal(t, 1.0, values["tag_index_documents_reindexed_total"])
	assert.Equal(t, 2.0, values["tag_index_repairs_total"])
	assert.Equal(t, 4.0, values["tag_index_documents"])
	assert.Equal(t, 9.0, values["tag_index_tags"])
	assert.Equal(t, 2.0, values["search_skipped_documents_total"])
	assert.Equal(t, 1.0, values["cache_misses_total"])
}

// gather returns the first sample of every counter and gauge family.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		metric := mf.GetMetric()[0]
		switch {
		case metric.GetCounter() != nil:
			out[mf.GetName()] = metric.GetCounter().GetValue()
		case metric.GetGauge() != nil:
			out[mf.GetName()] = metric.GetGauge().GetValue()
		}
	}
	return out
}

func TestServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveReindex("reindex")

	srv := newServer(0, reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reindex")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
