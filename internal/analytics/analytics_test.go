package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesBySizeAndOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 2, time.Hour)
	c.Start(context.Background())

	c.TrackSearch(SearchEvent{Query: "milk", Kind: "text"})
	c.TrackIndex(IndexEvent{Op: "reindex", DocumentID: "n1"})
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)

	c.TrackSearch(SearchEvent{Query: "#todo", Kind: "tag"})
	c.Close()
	assert.Equal(t, 3, pub.count())

	first := pub.batches[0][0].Value.(SearchEvent)
	assert.Equal(t, EventSearch, first.Type)
	assert.False(t, first.Timestamp.IsZero())
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 100, 10*time.Millisecond)
	c.Start(context.Background())
	defer c.Close()

	c.TrackSearch(SearchEvent{Query: "milk", Kind: "text"})
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "Milk", Kind: "text", Results: 2, LatencyMs: 10})
	agg.RecordSearch(SearchEvent{Query: "milk", Kind: "text", Results: 1, LatencyMs: 30, CacheHit: true})
	agg.RecordSearch(SearchEvent{Query: "#todo", Kind: "tag", Results: 0, LatencyMs: 1})
	agg.RecordSearch(SearchEvent{Query: "eggs", Kind: "text", Results: 0, Skipped: 2, Partial: true, LatencyMs: 5})
	agg.RecordIndex(IndexEvent{Op: "reindex", DocumentID: "n1"})
	agg.RecordIndex(IndexEvent{Op: "reindex", DocumentID: "n2"})
	agg.RecordIndex(IndexEvent{Op: "clear"})

	s := agg.Stats()
	assert.Equal(t, int64(4), s.TotalSearches)
	assert.Equal(t, int64(3), s.SearchesByKind["text"])
	assert.Equal(t, int64(1), s.SearchesByKind["tag"])
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.ZeroResultCount)
	assert.Equal(t, int64(2), s.SkippedDocuments)
	assert.Equal(t, int64(1), s.PartialSearches)
	assert.Equal(t, int64(2), s.IndexOps["reindex"])
	assert.Equal(t, QueryCount{Query: "milk", Count: 2}, s.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "#todo", Count: 1}}, s.TopTags)
	assert.Len(t, s.ZeroResultQueries, 2)
	assert.Equal(t, int64(10), s.P50LatencyMs)
	assert.InDelta(t, 11.5, s.AvgLatencyMs, 0.001)
}

func TestHandleEventDispatchesByType(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	ctx := context.Background()

	search, _ := json.Marshal(SearchEvent{Type: EventSearch, Query: "x", Kind: "text", Results: 1})
	index, _ := json.Marshal(IndexEvent{Type: EventIndex, Op: "remove", DocumentID: "n1"})
	require.NoError(t, h(ctx, nil, search))
	require.NoError(t, h(ctx, nil, index))
	require.NoError(t, h(ctx, nil, []byte(`{"type":"other"}`)))

	err := h(ctx, nil, []byte("not json"))
	require.Error(t, err)
	assert.True(t, kafka.IsPermanent(err))

	s := agg.Stats()
	assert.Equal(t, int64(1), s.TotalSearches)
	assert.Equal(t, int64(1), s.IndexOps["remove"])
}

type fakeHistory struct {
	snaps []AggregatedStats
	err   error
}

func (f fakeHistory) ListSnapshots(context.Context, int) ([]AggregatedStats, error) {
	return f.snaps, f.err
}

func TestHandlerRoutes(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "x", Kind: "text", Results: 1})

	mux := http.NewServeMux()
	NewHandler(agg, fakeHistory{snaps: []AggregatedStats{{TotalSearches: 7}}}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalSearches)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	assert.Equal(t, int64(7), snaps[0].TotalSearches)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerHistoryErrors(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewAggregator(), fakeHistory{err: errors.New("db down")}).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	mux = http.NewServeMux()
	NewHandler(NewAggregator(), nil).Register(mux)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
