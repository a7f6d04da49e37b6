// Package documents reads note and journal content for the search path.
// Notes live in a file tree keyed by opaque IDs; journals are flat files
// whose document ID is "journal_" plus the file name.
package documents

import (
	"context"
	"strings"
	"time"
)

type Kind string

const (
	KindNote    Kind = "note"
	KindJournal Kind = "journal"
)

// JournalPrefix marks journal document IDs.
const JournalPrefix = "journal_"

// WelcomeID is the note application's built-in welcome note. It is left
// out of free-text search; its tags are still indexed.
const WelcomeID = "welcome"

// Ref identifies a document without its content.
type Ref struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Store is the read side of wherever documents live. GetContent errors
// wrap ErrDocumentNotFound or ErrDocumentFetch.
type Store interface {
	GetContent(ctx context.Context, id string) (string, error)
	ListNotes(ctx context.Context) ([]Ref, error)
	ListJournals(ctx context.Context) ([]Ref, error)
}

// KindFromID classifies a document by its ID alone.
func KindFromID(id string) Kind {
	if strings.HasPrefix(id, JournalPrefix) {
		return KindJournal
	}
	return KindNote
}

// JournalID returns the document ID for a journal file name.
func JournalID(fileName string) string {
	return JournalPrefix + fileName
}

// JournalName is the inverse of JournalID.
func JournalName(id string) string {
	return strings.TrimPrefix(id, JournalPrefix)
}

// validSegment rejects IDs that would escape their directory or URL path.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
