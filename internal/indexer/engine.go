// Package indexer owns the tag index: one Engine per process keeps the
// in-memory index authoritative and mirrors it to a kvstore blob after
// every change.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/tagger"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/kvstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
)

const DefaultStorageKey = "markdown-tag-index"

// ChangeHook runs after a mutation has been applied and persisted. An
// empty documentID means the whole index changed.
type ChangeHook func(ctx context.Context, documentID string)

type Option func(*Engine)

func WithStorageKey(key string) Option {
	return func(e *Engine) {
		if key != "" {
			e.key = key
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithChangeHook(h ChangeHook) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = append(e.hooks, h)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Stats describes the index and its persistence state.
type Stats struct {
	index.Stats
	StorageKey      string    `json:"storageKey"`
	PendingPersist  bool      `json:"pendingPersist"`
	LastPersistedAt time.Time `json:"lastPersistedAt,omitzero"`
}

// Engine serializes writers behind writeMu; readers go straight to the
// MemoryIndex, whose own lock makes each reindex atomic to them.
type Engine struct {
	mem     *index.MemoryIndex
	store   kvstore.Store
	key     string
	metrics *metrics.Metrics
	hooks   []ChangeHook
	logger  *slog.Logger

	writeMu       sync.Mutex
	dirty         atomic.Bool
	lastPersisted atomic.Int64
}

// NewEngine builds an engine over store and loads the persisted index.
// A missing or unreadable blob leaves the engine empty; it never fails
// construction.
func NewEngine(ctx context.Context, store kvstore.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("creating tag index engine: nil store")
	}
	e := &Engine{
		mem:    index.NewMemoryIndex(),
		store:  store,
		key:    DefaultStorageKey,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Load(ctx)
	return e, nil
}

// ReindexDocument replaces everything the index knows about id with the
// tags found in content and records modified as its last indexed time.
// The only error is invalid input; persistence failures are logged.
func (e *Engine) ReindexDocument(ctx context.Context, id, name, content string, modified time.Time) error {
	if id == "" {
		return apperrors.Invalid("document id is required")
	}
	if name == "" {
		name = id
	}
	tags := tagger.ExtractTags(content)

	e.writeMu.Lock()
	e.mem.ReplaceDocument(id, name, tags, modified)
	e.persistLocked(ctx)
	e.writeMu.Unlock()

	e.metrics.ObserveReindex("reindex")
	e.logger.Debug("document reindexed", "doc_id", id, "tags", len(tags))
	e.notify(ctx, id)
	return nil
}

// RemoveDocument drops id from every tag and from the metadata table.
// Removing an unknown document is not an error.
func (e *Engine) RemoveDocument(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.Invalid("document id is required")
	}
	e.writeMu.Lock()
	known := e.mem.RemoveDocument(id)
	if known {
		e.persistLocked(ctx)
	}
	e.writeMu.Unlock()

	if !known {
		e.logger.Debug("remove for unindexed document ignored", "doc_id", id)
		return nil
	}
	e.metrics.ObserveReindex("remove")
	e.logger.Debug("document removed from index", "doc_id", id)
	e.notify(ctx, id)
	return nil
}

// Query returns the postings for an exact, case-sensitive tag.
func (e *Engine) Query(tag string) index.PostingList {
	return e.mem.Search(tag)
}

func (e *Engine) Metadata(id string) (index.DocumentMetadata, bool) {
	return e.mem.Metadata(id)
}

func (e *Engine) AllMetadata() []index.DocumentMetadata {
	return e.mem.AllMetadata()
}

func (e *Engine) Tags() []index.TagCount {
	return e.mem.Tags()
}

func (e *Engine) Stats() Stats {
	s := Stats{
		Stats:          e.mem.Stats(),
		StorageKey:     e.key,
		PendingPersist: e.dirty.Load(),
	}
	if ns := e.lastPersisted.Load(); ns > 0 {
		s.LastPersistedAt = time.Unix(0, ns).UTC()
	}
	return s
}

// Clear empties the index and persists the empty state.
func (e *Engine) Clear(ctx context.Context) {
	e.writeMu.Lock()
	e.mem.Reset()
	e.persistLocked(ctx)
	e.writeMu.Unlock()

	e.logger.Info("tag index cleared")
	e.notify(ctx, "")
}

// Load replaces the in-memory index with the persisted blob. Any failure
// leaves an empty index behind and is only logged.
func (e *Engine) Load(ctx context.Context) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	data, err := e.store.Get(ctx, e.key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		e.mem.Reset()
		e.metrics.ObserveLoad("empty", 0)
		e.logger.Info("no persisted tag index, starting empty", "key", e.key)
		e.updateGauges()
		return
	case err != nil:
		e.mem.Reset()
		outcome := "error"
		if errors.Is(err, apperrors.ErrStorageCorrupt) {
			outcome = "corrupt"
		}
		e.metrics.ObserveLoad(outcome, 0)
		e.logger.Error("loading tag index failed, starting empty", "key", e.key, "error", err)
		e.updateGauges()
		return
	}

	snap, report, err := index.Decode(data, tagger.Marker)
	if err != nil {
		e.mem.Reset()
		e.metrics.ObserveLoad("corrupt", 0)
		e.logger.Error("persisted tag index is corrupt, starting empty", "key", e.key, "error", err)
		e.updateGauges()
		return
	}
	e.mem.Restore(snap)
	e.metrics.ObserveLoad("loaded", report.Repaired)
	if report.Repaired > 0 || report.SkippedKeys > 0 {
		e.logger.Warn("repaired persisted tag index",
			"key", e.key,
			"dropped_entries", report.Repaired,
			"skipped_keys", report.SkippedKeys,
		)
	}
	st := e.mem.Stats()
	e.logger.Info("tag index loaded", "key", e.key, "tags", st.Tags, "documents", st.Documents)
	e.updateGauges()
}

// Save writes the current index to the store. Mutations already call it;
// it is exported for the persist loop and for callers that need to know
// whether the write succeeded.
func (e *Engine) Save(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.persistLocked(ctx)
}

func (e *Engine) persistLocked(ctx context.Context) error {
	e.updateGauges()
	data, err := index.Encode(e.mem.Snapshot())
	if err == nil {
		err = e.store.Put(ctx, e.key, data)
	}
	if err != nil {
		e.dirty.Store(true)
		e.metrics.ObservePersist("error")
		err = fmt.Errorf("%w: %v", apperrors.ErrPersistenceWrite, err)
		e.logger.Error("persisting tag index failed, in-memory index is still current", "key", e.key, "error", err)
		return err
	}
	e.dirty.Store(false)
	e.lastPersisted.Store(time.Now().UnixNano())
	e.metrics.ObservePersist("ok")
	return nil
}

// DefaultPersistInterval is used when StartPersistLoop gets a
// non-positive interval.
const DefaultPersistInterval = 10 * time.Second

// StartPersistLoop retries failed saves every interval until ctx ends,
// then makes one final attempt if a save is still pending.
func (e *Engine) StartPersistLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if e.dirty.Load() {
					e.logger.Info("persist loop stopping, retrying pending save")
					final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
					_ = e.Save(final)
					cancel()
				}
				return
			case <-ticker.C:
				if e.dirty.Load() {
					_ = e.Save(ctx)
				}
			}
		}
	}()
}

// Close flushes a pending save. The store is owned by the caller.
func (e *Engine) Close(ctx context.Context) error {
	if !e.dirty.Load() {
		return nil
	}
	return e.Save(ctx)
}

func (e *Engine) updateGauges() {
	st := e.mem.Stats()
	e.metrics.SetIndexSize(st.Documents, st.Tags)
}

func (e *Engine) notify(ctx context.Context, id string) {
	for _, h := range e.hooks {
		h(ctx, id)
	}
}
