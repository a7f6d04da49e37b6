package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/kvstore"
)

func writeFile(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func setup(t *testing.T) (string, *documents.FS, *indexer.Engine) {
	t.Helper()
	root := t.TempDir()
	store := documents.NewFS(root, filepath.Join(root, "journals"))
	eng, err := indexer.NewEngine(context.Background(), kvstore.NewMemory())
	require.NoError(t, err)
	return root, store, eng
}

func TestRunIndexesSkipsAndRemoves(t *testing.T) {
	root, store, eng := setup(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	writeFile(t, filepath.Join(root, "a.md"), "#alpha", t0)
	writeFile(t, filepath.Join(root, "b.md"), "#beta", t0)
	writeFile(t, filepath.Join(root, "journals", "2024-01-01.md"), "#daily", t0)

	r := New(eng, store, 2)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Indexed)
	assert.Zero(t, report.Unchanged)
	require.Len(t, eng.Query("#daily"), 1)
	assert.Equal(t, "journal_2024-01-01.md", eng.Query("#daily")[0].DocumentID)

	report, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Unchanged)
	assert.Zero(t, report.Indexed)

	writeFile(t, filepath.Join(root, "a.md"), "#gamma", t0.Add(time.Hour))
	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))

	report, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Unchanged)
	assert.Empty(t, eng.Query("#alpha"))
	assert.Empty(t, eng.Query("#beta"))
	assert.Len(t, eng.Query("#gamma"), 1)
}

func TestRebuildStartsFromEmpty(t *testing.T) {
	root, store, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, eng.ReindexDocument(ctx, "ghost", "ghost", "#old", time.Now()))
	writeFile(t, filepath.Join(root, "a.md"), "#alpha", time.Now())

	report, err := New(eng, store, 0).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Zero(t, report.Removed)
	assert.Empty(t, eng.Query("#old"))
}

type brokenStore struct{ documents.Store }

func (brokenStore) ListNotes(context.Context) ([]documents.Ref, error) {
	return nil, errors.New("offline")
}

func TestListingFailureRemovesNothing(t *testing.T) {
	_, store, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, eng.ReindexDocument(ctx, "n1", "n1", "#keep", time.Now()))

	_, err := New(eng, brokenStore{store}, 0).Run(ctx)
	require.Error(t, err)
	_, err = New(eng, brokenStore{store}, 0).Rebuild(ctx)
	require.Error(t, err)
	assert.Len(t, eng.Query("#keep"), 1)
}
