// Package analytics turns search and index activity into events, ships
// them to Kafka and aggregates them on the other side.
package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventIndex  EventType = "index"
)

// SearchEvent describes one completed search. Superseded searches are not
// reported.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Kind      string    `json:"kind"`
	Results   int       `json:"results"`
	Skipped   int       `json:"skipped"`
	Partial   bool      `json:"partial,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent describes one index mutation. Op is "reindex", "remove" or
// "clear"; DocumentID is empty for "clear".
type IndexEvent struct {
	Type       EventType `json:"type"`
	Op         string    `json:"op"`
	DocumentID string    `json:"document_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope peeks at the type of an encoded event.
type envelope struct {
	Type EventType `json:"type"`
}
