package documents

import (
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
)

// Open builds the backend named by cfg.Backend. db is only used by the
// postgres backend.
func Open(cfg config.DocumentsConfig, db *sql.DB, m *metrics.Metrics) (Store, error) {
	switch cfg.Backend {
	case "fs":
		return NewFS(cfg.NotesDir, cfg.JournalsDir), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("documents backend http: baseUrl is required")
		}
		return NewHTTP(HTTPConfig{
			BaseURL:      cfg.BaseURL,
			FetchTimeout: cfg.FetchTimeout,
			MaxAttempts:  cfg.MaxAttempts,
			Metrics:      m,
		}), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("documents backend postgres: postgres is not configured")
		}
		return NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("unknown documents backend %q", cfg.Backend)
	}
}
