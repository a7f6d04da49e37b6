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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/watcher"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"index_store", cfg.Index.Store,
		"documents", cfg.Documents.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	stack, err := bootstrap.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	var queryCache *cache.QueryCache
	if stack.Redis != nil {
		queryCache = cache.NewRedis(stack.Redis, cfg.Redis.CacheTTL, m)
		slog.Info("search cache enabled", "backend", "redis", "ttl", cfg.Redis.CacheTTL)
	} else {
		queryCache = cache.NewLRU(cfg.Search.CacheSize, cfg.Search.CacheTTL, m)
		slog.Info("search cache enabled", "backend", "lru", "size", cfg.Search.CacheSize, "ttl", cfg.Search.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000, 100, 5*time.Second)
		collector.Start(ctx)
		defer collector.Close()
	}

	var engine *indexer.Engine
	onChange := func(ctx context.Context, docID string) {
		if err := queryCache.Invalidate(ctx); err != nil {
			slog.Warn("cache invalidation after index change failed", "error", err)
		}
		if collector != nil {
			op := "reindex"
			switch _, indexed := engine.Metadata(docID); {
			case docID == "":
				op = "clear"
			case !indexed:
				op = "remove"
			}
			collector.TrackIndex(analytics.IndexEvent{Op: op, DocumentID: docID})
		}
	}

	engine, err = stack.NewEngine(ctx, cfg,
		indexer.WithMetrics(m),
		indexer.WithChangeHook(onChange),
	)
	if err != nil {
		slog.Error("failed to create index engine", "error", err)
		os.Exit(1)
	}
	engine.StartPersistLoop(ctx, cfg.Index.PersistInterval)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Close(closeCtx); err != nil {
			slog.Error("final index save failed", "error", err)
		}
	}()

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentEvents, consumer.HandleMessage(engine, m))
		indexConsumer := consumer.New(kc)
		defer indexConsumer.Close()
		go func() {
			if err := indexConsumer.Start(ctx); err != nil {
				slog.Error("document event consumer error", "error", err)
			}
		}()
	}

	if cfg.Watcher.Enabled {
		fs, ok := stack.Documents.(*documents.FS)
		if !ok {
			slog.Warn("watcher requires the fs document backend, not starting it", "backend", cfg.Documents.Backend)
		} else {
			w := watcher.New(fs, engine, cfg.Watcher.Debounce)
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Error("document watcher error", "error", err)
				}
			}()
		}
	}

	searcher := paragraph.NewSearcher(stack.Documents, cfg.Search.MaxConcurrentFetches)
	router := executor.New(engine, stack.Documents, searcher, executor.WithMetrics(m))

	var tracker handler.SearchTracker
	if collector != nil {
		tracker = collector
	}
	h, err := handler.New(router, engine, queryCache, tracker, handler.Config{
		MaxSessions:  cfg.Search.MaxSessions,
		MaxBodyBytes: int64(cfg.Ingestion.MaxContentLength) + 64<<10,
	})
	if err != nil {
		slog.Error("failed to create search handler", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		st := engine.Stats()
		if st.PendingPersist {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index changes not yet persisted"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents, %d tags", st.Documents, st.Tags)}
	})
	stack.RegisterChecks(checker)

	mux := http.NewServeMux()
	h.Register(mux)
	checker.Mount(mux)

	chain := middleware.Chain(mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
