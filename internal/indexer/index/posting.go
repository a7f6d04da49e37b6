package index

import "time"

// Occurrence is one appearance of a tag inside a document. Offsets count
// characters within LineText.
type Occurrence struct {
	LineIndex   int    `json:"lineIndex"`
	LineText    string `json:"lineText"`
	Context     string `json:"context"`
	MatchOffset int    `json:"matchOffset"`
}

// Posting records every occurrence of one tag in one document.
type Posting struct {
	DocumentID   string       `json:"documentId"`
	DocumentName string       `json:"documentName"`
	Occurrences  []Occurrence `json:"occurrences"`
}

type PostingList []Posting

// DocumentMetadata is the index's record of when a document was last
// indexed. LastIndexedTime holds the document's modification time as passed
// to the reindex call, so callers can compare it against the store.
type DocumentMetadata struct {
	DocumentID      string    `json:"-"`
	DocumentName    string    `json:"documentName"`
	LastIndexedTime time.Time `json:"lastIndexedTime"`
}

// TagCount is a tag and how many documents carry it.
type TagCount struct {
	Tag       string `json:"tag"`
	Documents int    `json:"documents"`
}

type Stats struct {
	Tags        int `json:"tags"`
	Documents   int `json:"documents"`
	Postings    int `json:"postings"`
	Occurrences int `json:"occurrences"`
}

// Snapshot is a detached copy of the whole index, used for persistence.
type Snapshot struct {
	Tags     map[string]PostingList
	Metadata map[string]DocumentMetadata
}
