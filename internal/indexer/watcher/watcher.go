// Package watcher reindexes notes and journals as they change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
)

const DefaultDebounce = 300 * time.Millisecond

type Indexer interface {
	ReindexDocument(ctx context.Context, id, name, content string, modified time.Time) error
	RemoveDocument(ctx context.Context, id string) error
}

// Watcher follows the notes and journals directories of a filesystem
// document store. Bursts of events for one path collapse into a single
// reindex or removal once the path has been quiet for the debounce delay.
type Watcher struct {
	store    *documents.FS
	index    Indexer
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(store *documents.FS, idx Indexer, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		store:    store,
		index:    idx,
		debounce: debounce,
		logger:   slog.Default().With("component", "fs-watcher"),
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Pending debounced work is dropped on
// shutdown; the next reconcile picks it up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range []string{w.store.NotesDir(), w.store.JournalsDir()} {
		if err := fw.Add(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.logger.Warn("directory missing, not watching it", "dir", dir)
				continue
			}
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.logger.Info("watching documents", "notes", w.store.NotesDir(), "journals", w.store.JournalsDir())

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	if _, ok := w.store.RefForPath(path); !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.apply(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// apply reindexes path if it exists and removes its document otherwise.
func (w *Watcher) apply(ctx context.Context, path string) {
	ref, ok := w.store.RefForPath(path)
	if !ok {
		return
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := w.index.RemoveDocument(ctx, ref.ID); err != nil {
			w.logger.Error("remove failed", "doc_id", ref.ID, "error", err)
		}
		return
	}
	if err != nil {
		w.logger.Warn("stat failed", "path", path, "error", err)
		return
	}
	content, err := w.store.GetContent(ctx, ref.ID)
	if err != nil {
		w.logger.Warn("read failed", "doc_id", ref.ID, "error", err)
		return
	}
	if err := w.index.ReindexDocument(ctx, ref.ID, ref.Name, content, info.ModTime()); err != nil {
		w.logger.Error("reindex failed", "doc_id", ref.ID, "error", err)
		return
	}
	w.logger.Debug("document reindexed from disk", "doc_id", ref.ID)
}
