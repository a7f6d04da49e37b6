package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/resilience"
)

// HTTPConfig configures the REST-backed store.
type HTTPConfig struct {
	BaseURL      string
	FetchTimeout time.Duration
	MaxAttempts  int
	Client       *http.Client
	Metrics      *metrics.Metrics
	Breaker      resilience.CircuitBreakerConfig
}

// HTTP talks to the note application's REST API. Every call is bounded by
// FetchTimeout, retried with backoff and guarded by one circuit breaker.
// Not-found answers are neither retried nor counted as breaker failures.
type HTTP struct {
	base    string
	client  *http.Client
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ Store = (*HTTP)(nil)

func NewHTTP(cfg HTTPConfig) *HTTP {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = countsAgainstBreaker
	if breakerCfg.OnStateChange == nil && cfg.Metrics != nil {
		m := cfg.Metrics
		breakerCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		}
	}
	return &HTTP{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		timeout: cfg.FetchTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Retryable:    retryable,
		},
		breaker: resilience.NewCircuitBreaker("documents-http", breakerCfg),
		metrics: cfg.Metrics,
		logger:  slog.Default().With("component", "documents-http"),
	}
}

func countsAgainstBreaker(err error) bool {
	return err != nil &&
		!errors.Is(err, apperrors.ErrDocumentNotFound) &&
		!errors.Is(err, context.Canceled)
}

func retryable(err error) bool {
	return countsAgainstBreaker(err) && !errors.Is(err, resilience.ErrCircuitOpen)
}

type contentResponse struct {
	Content string `json:"content"`
}

func (s *HTTP) GetContent(ctx context.Context, id string) (string, error) {
	var path string
	if KindFromID(id) == KindJournal {
		name := JournalName(id)
		if !validSegment(name) {
			return "", apperrors.Invalid("invalid journal id %q", id)
		}
		path = "/api/files/journal/" + url.PathEscape(name)
	} else {
		if !validSegment(id) {
			return "", apperrors.Invalid("invalid note id %q", id)
		}
		path = "/api/files/" + url.PathEscape(id)
	}
	var resp contentResponse
	if err := s.getJSON(ctx, "get_content", path, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", id, err)
	}
	return resp.Content, nil
}

func (s *HTTP) ListNotes(ctx context.Context) ([]Ref, error) {
	var nodes []treeNode
	if err := s.getJSON(ctx, "list_notes", "/api/files/tree", &nodes); err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	refs := make([]Ref, 0)
	walkFiles(nodes, func(n treeNode) {
		if !validSegment(n.ID) {
			return
		}
		refs = append(refs, Ref{ID: n.ID, Name: n.Name, Kind: KindNote, ModifiedAt: parseTimestamp(n.UpdatedAt)})
	})
	return refs, nil
}

func (s *HTTP) ListJournals(ctx context.Context) ([]Ref, error) {
	var entries []journalEntry
	if err := s.getJSON(ctx, "list_journals", "/api/files/journals", &entries); err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	refs := make([]Ref, 0, len(entries))
	for _, e := range entries {
		if !validSegment(e.Name) {
			continue
		}
		refs = append(refs, Ref{ID: JournalID(e.Name), Name: e.Name, Kind: KindJournal, ModifiedAt: parseTimestamp(e.UpdatedAt)})
	}
	return refs, nil
}

// Ping checks that the API answers at all.
func (s *HTTP) Ping(ctx context.Context) error {
	var nodes []treeNode
	return s.getJSON(ctx, "ping", "/api/files/tree", &nodes)
}

func (s *HTTP) getJSON(ctx context.Context, op, path string, out any) error {
	err := resilience.Retry(ctx, "documents "+op, s.retry, func() error {
		return s.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, s.timeout, op, func(ctx context.Context) error {
				return s.do(ctx, path, out)
			})
		})
	})
	if err != nil {
		s.metrics.ObserveFetchError("http", op)
		if !errors.Is(err, apperrors.ErrDocumentNotFound) && !errors.Is(err, apperrors.ErrDocumentFetch) {
			err = fmt.Errorf("%w: %w", apperrors.ErrDocumentFetch, err)
		}
		return err
	}
	return nil
}

func (s *HTTP) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", apperrors.ErrDocumentFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrDocumentFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return apperrors.ErrDocumentNotFound
	case resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", apperrors.ErrDocumentFetch, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", apperrors.ErrDocumentFetch, path, err)
	}
	return nil
}
