package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
)

func results(ids ...string) []paragraph.SearchResult {
	out := make([]paragraph.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = paragraph.SearchResult{DocumentID: id}
	}
	return out
}

func ids(rs []paragraph.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.DocumentID
	}
	return out
}

func TestMerge(t *testing.T) {
	notes := results("a", "m", "z")
	journals := results("journal_1.md", "journal_2.md")
	assert.Equal(t, []string{"a", "journal_1.md", "journal_2.md", "m", "z"}, ids(Merge(notes, journals)))
}

func TestMergeUnsortedAndDuplicates(t *testing.T) {
	first := []paragraph.SearchResult{{DocumentID: "b", DocumentName: "first"}, {DocumentID: "a"}}
	second := []paragraph.SearchResult{{DocumentID: "b", DocumentName: "second"}}
	merged := Merge(first, second)
	assert.Equal(t, []string{"a", "b"}, ids(merged))
	assert.Equal(t, "first", merged[1].DocumentName)
	assert.Equal(t, "b", first[0].DocumentID, "input left untouched")
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, results()))
	assert.NotNil(t, Merge())
}
