package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/parser"
)

func sampleResponse(q string) *executor.Response {
	return &executor.Response{
		Query: q,
		Kind:  parser.QueryText,
		Results: []paragraph.SearchResult{{
			DocumentID:   "n1",
			DocumentName: "Note",
			DocumentKind: "note",
			Matches:      []paragraph.MatchRecord{{ParagraphText: "milk", Context: "milk"}},
		}},
	}
}

func TestGetOrComputeCachesAndCounts(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	ctx := context.Background()
	var calls atomic.Int32
	compute := func() (*executor.Response, error) {
		calls.Add(1)
		return sampleResponse("milk"), nil
	}

	resp, hit, err := c.GetOrCompute(ctx, "milk", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "n1", resp.Results[0].DocumentID)

	resp, hit, err = c.GetOrCompute(ctx, "milk", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, parser.QueryText, resp.Kind)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestQueriesAreKeyedVerbatim(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	c.Set(context.Background(), "milk", sampleResponse("milk"))

	_, ok := c.Get(context.Background(), "milk ")
	assert.False(t, ok)
	_, ok = c.Get(context.Background(), "milk")
	assert.True(t, ok)
}

func TestPartialResponsesAreNotStored(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	ctx := context.Background()
	compute := func() (*executor.Response, error) {
		resp := sampleResponse("milk")
		resp.Skipped = 1
		return resp, nil
	}
	_, _, err := c.GetOrCompute(ctx, "milk", compute)
	require.NoError(t, err)
	_, ok := c.Get(ctx, "milk")
	assert.False(t, ok)
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "x", func() (*executor.Response, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), "x")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, "a", sampleResponse("a"))
	c.Set(ctx, "b", sampleResponse("b"))

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := NewLRU(8, 20*time.Millisecond, nil)
	c.Set(context.Background(), "a", sampleResponse("a"))
	require.Eventually(t, func() bool {
		_, ok := c.Get(context.Background(), "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.Response, error) {
		calls.Add(1)
		<-release
		return sampleResponse("q"), nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "q", compute)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestInvalidateDuringComputeDropsResult(t *testing.T) {
	c := NewLRU(8, time.Minute, nil)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan *executor.Response)
	go func() {
		resp, _, err := c.GetOrCompute(ctx, "milk", func() (*executor.Response, error) {
			close(started)
			<-release
			return sampleResponse("milk"), nil
		})
		assert.NoError(t, err)
		done <- resp
	}()

	<-started
	require.NoError(t, c.Invalidate(ctx))
	close(release)
	resp := <-done
	require.NotNil(t, resp)
	assert.Equal(t, "n1", resp.Results[0].DocumentID)

	_, ok := c.Get(ctx, "milk")
	assert.False(t, ok, "stale response must not be stored")

	// the next search computes afresh and is stored
	var calls atomic.Int32
	_, hit, err := c.GetOrCompute(ctx, "milk", func() (*executor.Response, error) {
		calls.Add(1)
		return sampleResponse("milk"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	_, ok = c.Get(ctx, "milk")
	assert.True(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}
