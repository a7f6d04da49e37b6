// Command analytics aggregates search and index events from Kafka and
// serves the totals at GET /api/v1/analytics. When PostgreSQL is reachable
// it also snapshots the aggregate every minute and serves past snapshots
// at GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/postgres"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port, "topic", cfg.Kafka.Topics.AnalyticsEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	var history analytics.History
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshot history disabled", "error", err)
	} else {
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		store := snapshot.NewStore(db.DB)
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading latest snapshot failed", "error", err)
		} else if last != nil {
			slog.Info("previous snapshot found", "total_searches", last.TotalSearches)
		}
		store.StartPeriodicSave(ctx, aggregator, snapshotInterval)
		history = store
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	kcfg := cfg.Kafka
	kcfg.ConsumerGroup = cfg.Kafka.ConsumerGroup + "-analytics"
	kc := kafka.NewConsumer(kcfg, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	defer kc.Close()
	go func() {
		if err := kc.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, history).Register(mux)
	checker.Mount(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux,
			middleware.Recover,
			middleware.RequestID,
			middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
