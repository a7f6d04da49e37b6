// Package consumer applies document events from Kafka to the tag index.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/metrics"
)

// Indexer is the write side of the engine.
type Indexer interface {
	ReindexDocument(ctx context.Context, id, name, content string, modified time.Time) error
	RemoveDocument(ctx context.Context, id string) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a MessageHandler that reindexes saved documents
// and removes deleted ones. Malformed events are permanent failures.
func HandleMessage(engine Indexer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](value)
		if err != nil {
			m.ObserveEvent("unknown", "malformed")
			return err
		}
		eventType := string(event.Type)

		switch event.Type {
		case ingestion.EventSaved:
			modified := event.ModifiedAt
			if modified.IsZero() {
				modified = event.EmittedAt
			}
			err = engine.ReindexDocument(ctx, event.DocumentID, event.Name, event.Content, modified)
		case ingestion.EventDeleted:
			err = engine.RemoveDocument(ctx, event.DocumentID)
		default:
			m.ObserveEvent(eventType, "unsupported")
			return kafka.Permanent(fmt.Errorf("unsupported document event type %q", event.Type))
		}

		if err != nil {
			m.ObserveEvent(eventType, "failed")
			if apperrors.Is(err, apperrors.ErrInvalidInput) {
				return kafka.Permanent(fmt.Errorf("applying %s for %q: %w", eventType, event.DocumentID, err))
			}
			return fmt.Errorf("applying %s for %q: %w", eventType, event.DocumentID, err)
		}
		m.ObserveEvent(eventType, "applied")
		logger.Debug("document event applied", "type", eventType, "doc_id", event.DocumentID)
		return nil
	}
}
