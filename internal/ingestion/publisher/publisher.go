// Package publisher persists editor saves to PostgreSQL and announces them
// on the document events topic so the searcher can reindex.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
)

// DocumentWriter is the write side of documents.Postgres.
type DocumentWriter interface {
	Upsert(ctx context.Context, doc documents.Document) (time.Time, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates document persistence and Kafka event production.
type Publisher struct {
	db       DocumentWriter
	producer EventPublisher
	logger   *slog.Logger
}

func New(db DocumentWriter, producer EventPublisher) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Save persists the document and publishes a document.saved event keyed
// by its ID. A failed publish is logged and reported in the response
// status; the database write stands.
func (p *Publisher) Save(ctx context.Context, id string, req *ingestion.SaveRequest) (*ingestion.SaveResponse, error) {
	modified, err := p.db.Upsert(ctx, documents.Document{
		Ref:     documents.Ref{ID: id, Name: req.Name, Kind: documents.KindFromID(id)},
		Content: req.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	resp := &ingestion.SaveResponse{
		DocumentID: id,
		Kind:       string(documents.KindFromID(id)),
		ModifiedAt: modified,
		Status:     "published",
	}
	event := ingestion.DocumentEvent{
		Type:       ingestion.EventSaved,
		DocumentID: id,
		Name:       req.Name,
		Content:    req.Content,
		ModifiedAt: modified,
		EmittedAt:  time.Now().UTC(),
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: id, Value: event}); err != nil {
		p.logger.Error("failed to publish save event, index will lag until reconcile",
			"doc_id", id,
			"error", err,
		)
		resp.Status = "persisted"
	}
	return resp, nil
}

// Delete removes the document and publishes a document.deleted event.
// Deleting an unknown document is ErrDocumentNotFound.
func (p *Publisher) Delete(ctx context.Context, id string) error {
	removed, err := p.db.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if !removed {
		return apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %q", id)
	}
	event := ingestion.DocumentEvent{
		Type:       ingestion.EventDeleted,
		DocumentID: id,
		ModifiedAt: time.Now().UTC(),
		EmittedAt:  time.Now().UTC(),
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: id, Value: event}); err != nil {
		p.logger.Error("failed to publish delete event, index will lag until reconcile",
			"doc_id", id,
			"error", err,
		)
	}
	return nil
}
