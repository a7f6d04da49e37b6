// Package bootstrap opens the shared connections and stores that the
// searcher and the admin CLI both build from one Config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/kvstore"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/redis"
)

// Stack holds what Open built. Postgres and Redis are nil when no
// component needs them or when optional Redis is unreachable.
type Stack struct {
	Postgres  *postgres.Client
	Redis     *pkgredis.Client
	KV        kvstore.Store
	Documents documents.Store
}

// Open connects to Postgres when the index or the documents live there and
// to Redis when the index lives there or caching is enabled.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Stack, error) {
	s := &Stack{}

	if cfg.Index.Store == "postgres" || cfg.Documents.Backend == "postgres" {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s.Postgres = pg
		if err := pg.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if cfg.Index.Store == "redis" || cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		switch {
		case err != nil && cfg.Index.Store == "redis":
			s.Close()
			return nil, err
		case err != nil:
			slog.Warn("redis unavailable, falling back to in-process cache", "error", err)
		default:
			s.Redis = rc
			slog.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}

	deps := kvstore.Deps{Redis: s.Redis}
	if s.Postgres != nil {
		deps.Postgres = s.Postgres.DB
	}
	kv, err := kvstore.Open(cfg.Index, deps)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening index store: %w", err)
	}
	s.KV = kv

	docs, err := documents.Open(cfg.Documents, deps.Postgres, m)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	s.Documents = docs
	return s, nil
}

// NewEngine builds the engine over the stack's KV store and loads the
// persisted index.
func (s *Stack) NewEngine(ctx context.Context, cfg *config.Config, opts ...indexer.Option) (*indexer.Engine, error) {
	opts = append([]indexer.Option{indexer.WithStorageKey(cfg.Index.StorageKey)}, opts...)
	return indexer.NewEngine(ctx, s.KV, opts...)
}

// RegisterChecks adds readiness checks for whatever the stack opened.
func (s *Stack) RegisterChecks(checker *health.Checker) {
	if s.Postgres != nil {
		checker.Register("postgres", health.PingCheck(s.Postgres.Ping, false))
	}
	if s.Redis != nil {
		checker.Register("redis", health.PingCheck(s.Redis.Ping, true))
	}
	if p, ok := s.Documents.(interface{ Ping(context.Context) error }); ok {
		checker.Register("documents", health.PingCheck(p.Ping, true))
	}
}

func (s *Stack) Close() error {
	var errs []error
	if s.KV != nil {
		errs = append(errs, s.KV.Close())
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.Postgres != nil {
		errs = append(errs, s.Postgres.Close())
	}
	return errors.Join(errs...)
}
