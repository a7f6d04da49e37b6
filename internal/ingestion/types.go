// Package ingestion defines the request/response types and the Kafka event
// schema used when the editor saves or deletes a document.
package ingestion

import "time"

type EventType string

const (
	EventSaved   EventType = "document.saved"
	EventDeleted EventType = "document.deleted"
)

// SaveRequest is the JSON body of PUT /api/v1/documents/{id}.
type SaveRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SaveResponse is returned once the document is persisted. Status is
// "published" when the event reached Kafka and "persisted" when only the
// database write succeeded.
type SaveResponse struct {
	DocumentID string    `json:"documentId"`
	Kind       string    `json:"kind"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Status     string    `json:"status"`
}

// DocumentEvent is the payload on the document events topic. Name and
// Content are empty for deletions.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"documentId"`
	Name       string    `json:"name,omitempty"`
	Content    string    `json:"content,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
	EmittedAt  time.Time `json:"emittedAt"`
}
