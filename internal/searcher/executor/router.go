// Package executor routes a classified query to the tag index or to
// paragraph search and shapes both into one result type.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
)

// TagIndex is the read side of the tag index engine.
type TagIndex interface {
	Query(tag string) index.PostingList
}

// Response is what a search box gets back. Skipped counts documents that
// could not be fetched; Partial is set when a whole corpus listing failed.
type Response struct {
	Query   string                   `json:"query"`
	Kind    parser.QueryKind         `json:"kind"`
	Results []paragraph.SearchResult `json:"results"`
	Skipped int                      `json:"skipped"`
	Partial bool                     `json:"partial,omitempty"`
}

// Observer sees every completed search, superseded ones excluded.
type Observer func(ctx context.Context, resp *Response, took time.Duration)

type Option func(*Router)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

func WithObserver(o Observer) Option {
	return func(r *Router) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

type Router struct {
	tags      TagIndex
	store     documents.Store
	searcher  *paragraph.Searcher
	metrics   *metrics.Metrics
	observers []Observer
	logger    *slog.Logger
}

func New(tags TagIndex, store documents.Store, searcher *paragraph.Searcher, opts ...Option) *Router {
	r := &Router{
		tags:     tags,
		store:    store,
		searcher: searcher,
		logger:   slog.Default().With("component", "query-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route answers query without supersession tracking.
func (r *Router) Route(ctx context.Context, query string) ([]paragraph.SearchResult, error) {
	resp, err := r.Execute(ctx, paragraph.Token{}, query)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Execute classifies query and runs it. Blank queries return no results
// without touching the document store. Text searches started under tok
// fail with ErrSuperseded once a newer search begins.
func (r *Router) Execute(ctx context.Context, tok paragraph.Token, query string) (*Response, error) {
	start := time.Now()
	plan := parser.Parse(query)
	resp := &Response{Query: query, Kind: plan.Kind, Results: []paragraph.SearchResult{}}

	var err error
	switch plan.Kind {
	case parser.QueryTag:
		resp.Results = r.tagResults(plan.RawQuery)
	case parser.QueryText:
		err = r.textResults(ctx, tok, plan.RawQuery, resp)
	}
	took := time.Since(start)

	switch {
	case errors.Is(err, apperrors.ErrSuperseded):
		r.metrics.ObserveSuperseded()
		r.logger.Debug("search superseded", "query", query)
		return nil, err
	case err != nil:
		r.metrics.ObserveSearch(plan.Kind.String(), "error", took.Seconds(), 0, 0)
		return nil, err
	}

	outcome := "ok"
	if len(resp.Results) == 0 {
		outcome = "zero_result"
	}
	r.metrics.ObserveSearch(plan.Kind.String(), outcome, took.Seconds(), len(resp.Results), resp.Skipped)
	r.logger.Debug("query executed",
		"query", query,
		"kind", plan.Kind.String(),
		"results", len(resp.Results),
		"skipped", resp.Skipped,
		"took", took,
	)
	for _, o := range r.observers {
		o(ctx, resp, took)
	}
	return resp, nil
}

// tagResults adapts postings into the search result shape: the line of
// each occurrence stands in for a paragraph.
func (r *Router) tagResults(tag string) []paragraph.SearchResult {
	postings := r.tags.Query(tag)
	out := make([]paragraph.SearchResult, 0, len(postings))
	for _, p := range postings {
		matches := make([]paragraph.MatchRecord, len(p.Occurrences))
		for i, o := range p.Occurrences {
			matches[i] = paragraph.MatchRecord{
				ParagraphIndex: o.LineIndex,
				ParagraphText:  o.LineText,
				Context:        o.Context,
				MatchOffset:    o.MatchOffset,
			}
		}
		out = append(out, paragraph.SearchResult{
			DocumentID:   p.DocumentID,
			DocumentName: p.DocumentName,
			DocumentKind: documents.KindFromID(p.DocumentID),
			Matches:      matches,
		})
	}
	return out
}

func (r *Router) textResults(ctx context.Context, tok paragraph.Token, query string, resp *Response) error {
	var (
		mu       sync.Mutex
		notes    []documents.Ref
		journals []documents.Ref
	)
	list := func(name string, fn func(context.Context) ([]documents.Ref, error), dst *[]documents.Ref) func() error {
		return func() error {
			refs, err := fn(ctx)
			if err != nil {
				r.logger.Warn("listing documents failed, searching without them", "corpus", name, "error", err)
				mu.Lock()
				resp.Partial = true
				mu.Unlock()
				return nil
			}
			*dst = refs
			return nil
		}
	}
	var g errgroup.Group
	g.Go(list("notes", r.store.ListNotes, &notes))
	g.Go(list("journals", r.store.ListJournals, &journals))
	_ = g.Wait()
	notes = slices.DeleteFunc(notes, func(ref documents.Ref) bool { return ref.ID == documents.WelcomeID })

	noteRes, err := r.searcher.SearchCorpus(ctx, tok, notes, query)
	if err != nil {
		return fmt.Errorf("searching notes: %w", err)
	}
	journalRes, err := r.searcher.SearchCorpus(ctx, tok, journals, query)
	if err != nil {
		return fmt.Errorf("searching journals: %w", err)
	}
	resp.Results = merger.Merge(noteRes.Results, journalRes.Results)
	resp.Skipped = noteRes.Skipped + journalRes.Skipped
	return nil
}
