package index

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryIndex is the authoritative tag index: tag → document → posting,
// plus one metadata row per indexed document. Every mutation happens under
// the write lock, so readers see a document either fully before or fully
// after a reindex.
type MemoryIndex struct {
	mu   sync.RWMutex
	tags map[string]map[string]*Posting
	meta map[string]DocumentMetadata
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		tags: make(map[string]map[string]*Posting),
		meta: make(map[string]DocumentMetadata),
	}
}

// ReplaceDocument drops every posting of docID and inserts one posting per
// entry in tags, then upserts the metadata row. A document with no tags
// still gets a metadata row.
func (m *MemoryIndex) ReplaceDocument(docID, name string, tags map[string][]Occurrence, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(docID)
	for tag, occs := range tags {
		if len(occs) == 0 {
			continue
		}
		docs, ok := m.tags[tag]
		if !ok {
			docs = make(map[string]*Posting)
			m.tags[tag] = docs
		}
		docs[docID] = &Posting{
			DocumentID:   docID,
			DocumentName: name,
			Occurrences:  slices.Clone(occs),
		}
	}
	m.meta[docID] = DocumentMetadata{
		DocumentID:      docID,
		DocumentName:    name,
		LastIndexedTime: modified,
	}
}

// RemoveDocument reports whether docID was known to the index.
func (m *MemoryIndex) RemoveDocument(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(docID)
}

func (m *MemoryIndex) removeLocked(docID string) bool {
	_, known := m.meta[docID]
	for tag, docs := range m.tags {
		if _, ok := docs[docID]; !ok {
			continue
		}
		known = true
		delete(docs, docID)
		if len(docs) == 0 {
			delete(m.tags, tag)
		}
	}
	delete(m.meta, docID)
	return known
}

// Search returns the postings for an exact tag, ordered by document ID.
// Unknown tags yield an empty, non-nil list.
func (m *MemoryIndex) Search(tag string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.tags[tag]
	result := make(PostingList, 0, len(docs))
	for _, p := range docs {
		result = append(result, clonePosting(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocumentID < result[j].DocumentID
	})
	return result
}

func (m *MemoryIndex) Metadata(docID string) (DocumentMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.meta[docID]
	return md, ok
}

// AllMetadata returns every metadata row ordered by document ID.
func (m *MemoryIndex) AllMetadata() []DocumentMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]DocumentMetadata, 0, len(m.meta))
	for _, md := range m.meta {
		rows = append(rows, md)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].DocumentID < rows[j].DocumentID
	})
	return rows
}

// Tags lists every tag with its document count, ordered by tag.
func (m *MemoryIndex) Tags() []TagCount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TagCount, 0, len(m.tags))
	for tag, docs := range m.tags {
		out = append(out, TagCount{Tag: tag, Documents: len(docs)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tag < out[j].Tag
	})
	return out
}

func (m *MemoryIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Tags: len(m.tags), Documents: len(m.meta)}
	for _, docs := range m.tags {
		s.Postings += len(docs)
		for _, p := range docs {
			s.Occurrences += len(p.Occurrences)
		}
	}
	return s
}

// Snapshot copies the index so it can be encoded without holding the lock.
func (m *MemoryIndex) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Tags:     make(map[string]PostingList, len(m.tags)),
		Metadata: make(map[string]DocumentMetadata, len(m.meta)),
	}
	for tag, docs := range m.tags {
		list := make(PostingList, 0, len(docs))
		for _, p := range docs {
			list = append(list, clonePosting(p))
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].DocumentID < list[j].DocumentID
		})
		snap.Tags[tag] = list
	}
	for id, md := range m.meta {
		snap.Metadata[id] = md
	}
	return snap
}

// Restore replaces the whole index with snap. Callers are expected to have
// validated snap (see Decode).
func (m *MemoryIndex) Restore(snap Snapshot) {
	tags := make(map[string]map[string]*Posting, len(snap.Tags))
	for tag, list := range snap.Tags {
		if len(list) == 0 {
			continue
		}
		docs := make(map[string]*Posting, len(list))
		for _, p := range list {
			cp := clonePosting(&p)
			docs[p.DocumentID] = &cp
		}
		tags[tag] = docs
	}
	meta := make(map[string]DocumentMetadata, len(snap.Metadata))
	for id, md := range snap.Metadata {
		md.DocumentID = id
		meta[id] = md
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = tags
	m.meta = meta
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = make(map[string]map[string]*Posting)
	m.meta = make(map[string]DocumentMetadata)
}

func clonePosting(p *Posting) Posting {
	return Posting{
		DocumentID:   p.DocumentID,
		DocumentName: p.DocumentName,
		Occurrences:  slices.Clone(p.Occurrences),
	}
}
