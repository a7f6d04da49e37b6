package paragraph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

const DefaultMaxInFlight = 8

// CorpusResult holds matching documents in DocumentID order. Skipped
// counts documents whose content could not be fetched.
type CorpusResult struct {
	Results []SearchResult `json:"results"`
	Skipped int            `json:"skipped"`
}

// Searcher runs SearchInDocument across many documents, fetching content
// with at most maxInFlight concurrent requests.
type Searcher struct {
	store       documents.Store
	maxInFlight int
	logger      *slog.Logger
}

func NewSearcher(store documents.Store, maxInFlight int) *Searcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Searcher{
		store:       store,
		maxInFlight: maxInFlight,
		logger:      slog.Default().With("component", "paragraph-search"),
	}
}

// SearchCorpus fetches and searches every doc independently. A failed
// fetch only drops that document. If tok goes stale before the search
// completes, the partial result is discarded and ErrSuperseded returned.
func (s *Searcher) SearchCorpus(ctx context.Context, tok Token, docs []documents.Ref, query string) (*CorpusResult, error) {
	out := &CorpusResult{Results: []SearchResult{}}
	if query == "" || len(docs) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxInFlight)
	for _, doc := range docs {
		if !tok.Current() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if !tok.Current() {
				return nil
			}
			content, err := s.store.GetContent(gctx, doc.ID)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				s.logger.Warn("skipping document, content fetch failed", "doc_id", doc.ID, "error", err)
				mu.Lock()
				out.Skipped++
				mu.Unlock()
				return nil
			}
			matches := SearchInDocument(content, query)
			if len(matches) == 0 || !tok.Current() {
				return nil
			}
			kind := doc.Kind
			if kind == "" {
				kind = documents.KindFromID(doc.ID)
			}
			mu.Lock()
			out.Results = append(out.Results, SearchResult{
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				DocumentKind: kind,
				Matches:      matches,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if !tok.Current() {
		return nil, fmt.Errorf("text search %q: %w", query, apperrors.ErrSuperseded)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("text search %q: %w", query, err)
	}
	sort.Slice(out.Results, func(i, j int) bool {
		return out.Results[i].DocumentID < out.Results[j].DocumentID
	})
	return out, nil
}
