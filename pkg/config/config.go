// Package config loads application configuration from a YAML file with
// NS_* environment-variable overrides. Every binary (searcher, ingestion,
// analytics, indexer) reads the same Config and picks the sections it needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Index     IndexConfig     `yaml:"index"`
	Documents DocumentsConfig `yaml:"documents"`
	Search    SearchConfig    `yaml:"search"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. When Enabled is false
// the searcher does not consume document events and analytics are not
// published.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentEvents  string `yaml:"documentEvents"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// IndexConfig selects where the tag index blob lives.
//
// Store is one of "file", "sqlite", "redis", "postgres" or "memory".
type IndexConfig struct {
	Store           string        `yaml:"store"`
	DataDir         string        `yaml:"dataDir"`
	StorageKey      string        `yaml:"storageKey"`
	PersistInterval time.Duration `yaml:"persistInterval"`
}

// DocumentsConfig selects the document store the search path reads from.
//
// Backend is one of "fs", "http" or "postgres".
type DocumentsConfig struct {
	Backend      string        `yaml:"backend"`
	NotesDir     string        `yaml:"notesDir"`
	JournalsDir  string        `yaml:"journalsDir"`
	BaseURL      string        `yaml:"baseUrl"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
}

// SearchConfig controls corpus fan-out and result caching.
type SearchConfig struct {
	MaxConcurrentFetches int           `yaml:"maxConcurrentFetches"`
	CacheSize            int           `yaml:"cacheSize"`
	CacheTTL             time.Duration `yaml:"cacheTTL"`
	MaxSessions          int           `yaml:"maxSessions"`
}

// WatcherConfig controls live reindexing of the filesystem document store.
type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// IngestionConfig bounds what editors may submit to the ingestion service.
// RateLimit is writes per second per client; zero disables limiting.
type IngestionConfig struct {
	MaxNameLength    int     `yaml:"maxNameLength"`
	MaxContentLength int     `yaml:"maxContentLength"`
	RateLimit        float64 `yaml:"rateLimit"`
	RateBurst        int     `yaml:"rateBurst"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"http://localhost:5000"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "notesearch",
			User:            "notesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "notesearch-indexer",
			Topics: KafkaTopics{
				DocumentEvents:  "document-events",
				AnalyticsEvents: "search-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "notesearch:",
			CacheTTL:  60 * time.Second,
		},
		Index: IndexConfig{
			Store:           "file",
			DataDir:         "./data/index",
			StorageKey:      "markdown-tag-index",
			PersistInterval: 10 * time.Second,
		},
		Documents: DocumentsConfig{
			Backend:      "fs",
			NotesDir:     "./files",
			JournalsDir:  "./files/journals",
			BaseURL:      "http://localhost:5000",
			FetchTimeout: 5 * time.Second,
			MaxAttempts:  3,
		},
		Search: SearchConfig{
			MaxConcurrentFetches: 8,
			CacheSize:            256,
			CacheTTL:             60 * time.Second,
			MaxSessions:          1024,
		},
		Watcher: WatcherConfig{
			Debounce: 300 * time.Millisecond,
		},
		Ingestion: IngestionConfig{
			MaxNameLength:    255,
			MaxContentLength: 4 << 20,
			RateLimit:        20,
			RateBurst:        40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects backend names the binaries cannot open and values that
// would make them fail at startup.
func (c *Config) Validate() error {
	switch c.Index.Store {
	case "file", "sqlite", "redis", "postgres", "memory":
	default:
		return fmt.Errorf("index.store: unknown backend %q", c.Index.Store)
	}
	switch c.Documents.Backend {
	case "fs", "http", "postgres":
	default:
		return fmt.Errorf("documents.backend: unknown backend %q", c.Documents.Backend)
	}
	if c.Index.StorageKey == "" {
		return fmt.Errorf("index.storageKey must not be empty")
	}
	if c.Index.PersistInterval <= 0 {
		return fmt.Errorf("index.persistInterval must be positive, got %s", c.Index.PersistInterval)
	}
	if c.Search.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("search.maxConcurrentFetches must be positive, got %d", c.Search.MaxConcurrentFetches)
	}
	return nil
}

// applyEnvOverrides reads NS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("NS_SERVER_PORT", &cfg.Server.Port)
	if v := os.Getenv("NS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	setString("NS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("NS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("NS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("NS_POSTGRES_USER", &cfg.Postgres.User)
	setString("NS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("NS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setBool("NS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("NS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setBool("NS_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("NS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("NS_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("NS_INDEX_STORE", &cfg.Index.Store)
	setString("NS_INDEX_DATA_DIR", &cfg.Index.DataDir)
	setString("NS_DOCUMENTS_BACKEND", &cfg.Documents.Backend)
	setString("NS_DOCUMENTS_NOTES_DIR", &cfg.Documents.NotesDir)
	setString("NS_DOCUMENTS_JOURNALS_DIR", &cfg.Documents.JournalsDir)
	setString("NS_DOCUMENTS_BASE_URL", &cfg.Documents.BaseURL)
	setInt("NS_SEARCH_MAX_CONCURRENT_FETCHES", &cfg.Search.MaxConcurrentFetches)
	setBool("NS_WATCHER_ENABLED", &cfg.Watcher.Enabled)
	setString("NS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("NS_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("NS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("NS_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
