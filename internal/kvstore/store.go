// Package kvstore persists opaque blobs under string keys. The tag index
// is written through it as a single blob; the backend is chosen by
// configuration.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/redis"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("kvstore: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Deps carries the shared connections the networked backends reuse.
type Deps struct {
	Redis    *redis.Client
	Postgres *sql.DB
}

// Open builds the backend named by cfg.Store.
func Open(cfg config.IndexConfig, deps Deps) (Store, error) {
	switch cfg.Store {
	case "file":
		return NewFile(cfg.DataDir)
	case "sqlite":
		return NewSQLite(cfg.DataDir)
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("index store redis: redis is not configured")
		}
		return NewRedis(deps.Redis), nil
	case "postgres":
		if deps.Postgres == nil {
			return nil, fmt.Errorf("index store postgres: postgres is not configured")
		}
		return NewPostgres(deps.Postgres), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown index store %q", cfg.Store)
	}
}
