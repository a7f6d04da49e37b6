// Package cache memoizes text search responses. Tag queries are answered
// from the in-memory index and never cached. Any index mutation
// invalidates everything.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/redis"
)

const keyPrefix = "search:"

// backend stores encoded responses by key.
type backend interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte) error
	flush(ctx context.Context) (int64, error)
	name() string
}

// QueryCache counts invalidations in gen. A response computed under an
// older generation is returned to its callers but never stored.
type QueryCache struct {
	store   backend
	group   singleflight.Group
	genMu   sync.RWMutex
	gen     uint64
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewRedis caches responses in Redis under the client's key prefix.
func NewRedis(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return newCache(&redisBackend{client: client, ttl: ttl}, m)
}

// NewLRU caches at most size responses in process, each for ttl.
func NewLRU(size int, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	if size <= 0 {
		size = 256
	}
	return newCache(&lruBackend{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}, m)
}

func newCache(b backend, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   b,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache", "backend", b.name()),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string) (*executor.Response, bool) {
	key := buildKey(query)
	data, ok, err := c.store.get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !ok {
		c.miss()
		return nil, false
	}
	var resp executor.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.ObserveCache(true)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &resp, true
}

func (c *QueryCache) Set(ctx context.Context, query string, resp *executor.Response) {
	key := buildKey(query)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.set(ctx, key, data); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for query or computes it once
// for all concurrent callers. Partial responses are returned but not
// stored.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	computeFn func() (*executor.Response, error),
) (*executor.Response, bool, error) {
	if resp, ok := c.Get(ctx, query); ok {
		return resp, true, nil
	}
	gen := c.generation()
	// callers arriving after an invalidation must not join an older flight
	flight := fmt.Sprintf("%s@%d", buildKey(query), gen)
	val, err, _ := c.group.Do(flight, func() (any, error) {
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		if !resp.Partial && resp.Skipped == 0 {
			c.setIfCurrent(ctx, gen, query, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.Response), false, nil
}

func (c *QueryCache) generation() uint64 {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.gen
}

// setIfCurrent stores resp only if no invalidation happened since gen was
// read. Holding the read lock across the store orders it before any
// concurrent Invalidate, whose flush then removes it.
func (c *QueryCache) setIfCurrent(ctx context.Context, gen uint64, query string, resp *executor.Response) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.gen != gen {
		c.logger.Debug("dropping response computed before invalidation", "query", query)
		return
	}
	c.Set(ctx, query, resp)
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.genMu.Lock()
	c.gen++
	c.genMu.Unlock()

	deleted, err := c.store.flush(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Debug("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.ObserveCache(false)
}

func buildKey(query string) string {
	hash := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type redisBackend struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func (r *redisBackend) name() string { return "redis" }

func (r *redisBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *redisBackend) set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl)
}

func (r *redisBackend) flush(ctx context.Context) (int64, error) {
	return r.client.FlushByPattern(ctx, keyPrefix+"*")
}

type lruBackend struct {
	lru *expirable.LRU[string, []byte]
}

func (l *lruBackend) name() string { return "lru" }

func (l *lruBackend) get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.lru.Get(key)
	return v, ok, nil
}

func (l *lruBackend) set(_ context.Context, key string, value []byte) error {
	l.lru.Add(key, value)
	return nil
}

func (l *lruBackend) flush(context.Context) (int64, error) {
	n := int64(l.lru.Len())
	l.lru.Purge()
	return n, nil
}
