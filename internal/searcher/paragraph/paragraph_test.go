package paragraph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

func TestSearchInDocumentExample(t *testing.T) {
	records := SearchInDocument("line a\nline b\n\nline mentions target here", "target")
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ParagraphIndex)
	assert.Equal(t, "line mentions target here", records[0].ParagraphText)
	assert.Contains(t, records[0].Context, "target")
	assert.Equal(t, 14, records[0].MatchOffset)
}

func TestSearchInDocumentOneRecordPerParagraph(t *testing.T) {
	content := "Go is fun\ngo again GO\n   \nnothing\n\n\nlast go"
	records := SearchInDocument(content, "go")
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].ParagraphIndex)
	assert.Equal(t, "Go is fun\ngo again GO", records[0].ParagraphText)
	assert.Equal(t, 0, records[0].MatchOffset)
	assert.Equal(t, 2, records[1].ParagraphIndex)
	assert.Equal(t, 5, records[1].MatchOffset)
}

func TestSearchInDocumentCaseInsensitiveUnicode(t *testing.T) {
	records := SearchInDocument("Über ÉCOLE straße", "école")
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].MatchOffset)

	records = SearchInDocument("今天学习了 Go 语言", "go")
	require.Len(t, records, 1)
	assert.Equal(t, 6, records[0].MatchOffset)
}

func TestSearchInDocumentContextWindow(t *testing.T) {
	para := strings.Repeat("a", 50) + "needle" + strings.Repeat("b", 50)
	records := SearchInDocument(para, "NEEDLE")
	require.Len(t, records, 1)
	assert.Equal(t, strings.Repeat("a", 30)+"needle"+strings.Repeat("b", 30), records[0].Context)
}

func TestSearchInDocumentEmpty(t *testing.T) {
	assert.Empty(t, SearchInDocument("anything", ""))
	assert.Empty(t, SearchInDocument("", "x"))
	assert.Empty(t, SearchInDocument("abc", "abcd"))
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a\nb", "c"}, Paragraphs("\n\na\nb\n \t\nc\n"))
	assert.Empty(t, Paragraphs("\n  \n"))
}

// memStore is an in-memory documents.Store with optional failures and a
// hook that runs before each fetch.
type memStore struct {
	mu       sync.Mutex
	content  map[string]string
	fail     map[string]bool
	fetches  atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	before   func(id string)
}

func (m *memStore) GetContent(ctx context.Context, id string) (string, error) {
	m.fetches.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.before != nil {
		m.before(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[id] {
		return "", fmt.Errorf("%s: %w", id, apperrors.ErrDocumentFetch)
	}
	c, ok := m.content[id]
	if !ok {
		return "", apperrors.ErrDocumentNotFound
	}
	return c, nil
}

func (m *memStore) ListNotes(context.Context) ([]documents.Ref, error)    { return nil, nil }
func (m *memStore) ListJournals(context.Context) ([]documents.Ref, error) { return nil, nil }

func refs(ids ...string) []documents.Ref {
	out := make([]documents.Ref, len(ids))
	for i, id := range ids {
		out[i] = documents.Ref{ID: id, Name: id + ".md", Kind: documents.KindFromID(id)}
	}
	return out
}

func TestSearchCorpusSkipsFailuresAndSorts(t *testing.T) {
	store := &memStore{
		content: map[string]string{
			"n3":               "target three",
			"n1":               "no match",
			"journal_2024.md":  "journal target",
			"n2":               "Target two\n\nand target again",
		},
		fail: map[string]bool{"n4": true},
	}
	s := NewSearcher(store, 2)

	res, err := s.SearchCorpus(context.Background(), Token{}, refs("n3", "n1", "n4", "journal_2024.md", "n2"), "target")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "journal_2024.md", res.Results[0].DocumentID)
	assert.Equal(t, documents.KindJournal, res.Results[0].DocumentKind)
	assert.Equal(t, "n2", res.Results[1].DocumentID)
	assert.Len(t, res.Results[1].Matches, 2)
	assert.Equal(t, "n3", res.Results[2].DocumentID)
	assert.LessOrEqual(t, store.peak.Load(), int32(2))
}

func TestSearchCorpusEmptyQueryFetchesNothing(t *testing.T) {
	store := &memStore{content: map[string]string{"a": "x"}}
	res, err := NewSearcher(store, 0).SearchCorpus(context.Background(), Token{}, refs("a"), "")
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, int32(0), store.fetches.Load())
}

func TestSearchCorpusSuperseded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	store := &memStore{
		content: map[string]string{"a": "old query", "b": "old query"},
		before: func(string) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		},
	}
	s := NewSearcher(store, 1)
	tracker := NewTracker()

	ctx, tok := tracker.Begin(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.SearchCorpus(ctx, tok, refs("a", "b"), "old")
		errc <- err
	}()

	<-started
	_, newer := tracker.Begin(context.Background())
	close(release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, apperrors.ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search did not return")
	}
	assert.False(t, tok.Current())
	assert.True(t, newer.Current())
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	ctx1, t1 := tr.Begin(context.Background())
	assert.True(t, t1.Current())
	_, t2 := tr.Begin(context.Background())
	assert.False(t, t1.Current())
	assert.True(t, t2.Current())
	assert.Error(t, ctx1.Err())
	assert.True(t, Token{}.Current())

	tr.End(t1)
	assert.True(t, t2.Current())
}
