package bootstrap

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/kvstore"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/health"
)

func TestOpenLocalStackAndReload(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Index.Store = "sqlite"
	cfg.Index.DataDir = filepath.Join(root, "index")
	cfg.Documents.NotesDir = root
	cfg.Documents.JournalsDir = filepath.Join(root, "journals")
	ctx := context.Background()

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, s.Postgres)
	assert.Nil(t, s.Redis)
	assert.IsType(t, &documents.FS{}, s.Documents)

	eng, err := s.NewEngine(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, eng.ReindexDocument(ctx, "n1", "n1", "#kept", time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	eng, err = s.NewEngine(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, eng.Query("#kept"), 1)

	checker := health.NewChecker()
	s.RegisterChecks(checker)
	assert.Equal(t, health.StatusUp, checker.Run(ctx).Status)
}

func TestOpenFailsWhenRedisIndexUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Store = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}

type countingKV struct {
	*kvstore.Memory
	gets atomic.Int32
}

func (c *countingKV) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	return c.Memory.Get(ctx, key)
}

func TestNewEngineLoadsOnce(t *testing.T) {
	kv := &countingKV{Memory: kvstore.NewMemory()}
	s := &Stack{KV: kv, Documents: documents.NewFS(t.TempDir(), t.TempDir())}

	eng, err := s.NewEngine(context.Background(), config.Default())
	require.NoError(t, err)
	assert.Equal(t, int32(1), kv.gets.Load())
	assert.Equal(t, "markdown-tag-index", eng.Stats().StorageKey)
}
