package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/reconcile"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	notes := filepath.Join(root, "notes")
	journals := filepath.Join(root, "journals")
	require.NoError(t, os.MkdirAll(notes, 0o755))
	require.NoError(t, os.MkdirAll(journals, 0o755))

	t.Setenv("NS_INDEX_STORE", "file")
	t.Setenv("NS_INDEX_DATA_DIR", filepath.Join(root, "index"))
	t.Setenv("NS_DOCUMENTS_BACKEND", "fs")
	t.Setenv("NS_DOCUMENTS_NOTES_DIR", notes)
	t.Setenv("NS_DOCUMENTS_JOURNALS_DIR", journals)
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReconcileThenQuery(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "n1.md"), []byte("plan #work\n\nnothing"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "journals", "2024-01-02.md"), []byte("did #work"), 0o644))

	out, err := run(t, "reconcile", "--json")
	require.NoError(t, err)
	var report reconcile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Indexed)

	// a second process sees the persisted index
	out, err = run(t, "query", "#work", "--json")
	require.NoError(t, err)
	var postings index.PostingList
	require.NoError(t, json.Unmarshal([]byte(out), &postings))
	assert.Len(t, postings, 2)

	out, err = run(t, "reconcile", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, 2, report.Unchanged)
}

func TestSearchText(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "n1.md"), []byte("Alpha beta\n\ngamma"), 0o644))

	out, err := run(t, "search", "BETA")
	require.NoError(t, err)
	assert.Contains(t, out, "n1")
	assert.Contains(t, out, "1 documents (text")
}

func TestClearRequiresConfirmation(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "clear")
	assert.Error(t, err)

	out, err := run(t, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "index cleared")
}

func TestStatsAfterRebuild(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "n1.md"), []byte("#a #b"), 0o644))

	_, err := run(t, "rebuild")
	require.NoError(t, err)

	out, err := run(t, "stats", "--tags")
	require.NoError(t, err)
	assert.Contains(t, out, "documents:    1")
	assert.Contains(t, out, "#a")
}

func TestLoadtestAgainstServer(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NotEmpty(t, r.Header.Get("X-Search-Session"))
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	out, err := run(t, "loadtest", "--url", srv.URL, "--concurrency", "2", "--duration", "200ms", "--query", "#a", "--json")
	require.NoError(t, err)
	var report LoadReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Positive(t, report.Requests)
	assert.Zero(t, report.Errors)
	assert.Equal(t, report.Requests, report.StatusCodes[http.StatusOK])
}

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Zero(t, percentile(nil, 50))
}
