package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Index.Store)
	assert.Equal(t, "markdown-tag-index", cfg.Index.StorageKey)
	assert.Equal(t, 8, cfg.Search.MaxConcurrentFetches)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
index:
  store: sqlite
  dataDir: /var/lib/notesearch
search:
  maxConcurrentFetches: 4
  cacheTTL: 2m
documents:
  backend: http
  baseUrl: http://notes.local
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("NS_SEARCH_MAX_CONCURRENT_FETCHES", "16")
	t.Setenv("NS_KAFKA_ENABLED", "true")
	t.Setenv("NS_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Index.Store)
	assert.Equal(t, "/var/lib/notesearch", cfg.Index.DataDir)
	assert.Equal(t, 16, cfg.Search.MaxConcurrentFetches)
	assert.Equal(t, 2*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, "http", cfg.Documents.Backend)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	// untouched sections keep defaults
	assert.Equal(t, "markdown-tag-index", cfg.Index.StorageKey)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("NS_INDEX_STORE", "dynamo")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamo")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsNonPositivePersistInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  persistInterval: 0s\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistInterval")
}
