// Package reconcile brings the tag index in line with the document store:
// new and changed documents are reindexed, vanished ones removed.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
)

const DefaultConcurrency = 8

// Index is the part of the engine reconciliation drives.
type Index interface {
	AllMetadata() []index.DocumentMetadata
	ReindexDocument(ctx context.Context, id, name, content string, modified time.Time) error
	RemoveDocument(ctx context.Context, id string) error
	Clear(ctx context.Context)
}

type Report struct {
	Indexed   int           `json:"indexed"`
	Unchanged int           `json:"unchanged"`
	Removed   int           `json:"removed"`
	Failed    int           `json:"failed"`
	Took      time.Duration `json:"took"`
}

type Reconciler struct {
	index       Index
	store       documents.Store
	concurrency int
	logger      *slog.Logger
}

func New(idx Index, store documents.Store, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reconciler{
		index:       idx,
		store:       store,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "reconciler"),
	}
}

// Run reindexes every listed document whose modification time differs
// from its last indexed time and removes indexed documents that are no
// longer listed. A listing failure aborts before anything is removed.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	refs, err := r.listAll(ctx)
	if err != nil {
		return report, err
	}

	indexed := make(map[string]time.Time)
	for _, m := range r.index.AllMetadata() {
		indexed[m.DocumentID] = m.LastIndexedTime
	}

	listed := make(map[string]struct{}, len(refs))
	stale := make([]documents.Ref, 0)
	for _, ref := range refs {
		listed[ref.ID] = struct{}{}
		if last, ok := indexed[ref.ID]; ok && last.Equal(ref.ModifiedAt) {
			report.Unchanged++
			continue
		}
		stale = append(stale, ref)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, ref := range stale {
		g.Go(func() error {
			err := r.reindex(gctx, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("reindex failed", "doc_id", ref.ID, "error", err)
				report.Failed++
				return nil
			}
			report.Indexed++
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("reconcile interrupted: %w", err)
	}

	for id := range indexed {
		if _, ok := listed[id]; ok {
			continue
		}
		if err := r.index.RemoveDocument(ctx, id); err != nil {
			r.logger.Warn("remove failed", "doc_id", id, "error", err)
			report.Failed++
			continue
		}
		report.Removed++
	}

	report.Took = time.Since(start)
	r.logger.Info("reconcile complete",
		"indexed", report.Indexed,
		"unchanged", report.Unchanged,
		"removed", report.Removed,
		"failed", report.Failed,
		"took", report.Took,
	)
	return report, nil
}

// Rebuild clears the index and reindexes everything listed.
func (r *Reconciler) Rebuild(ctx context.Context) (Report, error) {
	if _, err := r.listAll(ctx); err != nil {
		return Report{}, err
	}
	r.index.Clear(ctx)
	return r.Run(ctx)
}

func (r *Reconciler) listAll(ctx context.Context) ([]documents.Ref, error) {
	notes, err := r.store.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	journals, err := r.store.ListJournals(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	return append(notes, journals...), nil
}

func (r *Reconciler) reindex(ctx context.Context, ref documents.Ref) error {
	content, err := r.store.GetContent(ctx, ref.ID)
	if err != nil {
		return err
	}
	return r.index.ReindexDocument(ctx, ref.ID, ref.Name, content, ref.ModifiedAt)
}
