// Package paragraph implements free-text search over document content.
// A paragraph here is a maximal run of non-blank lines, which is coarser
// than the per-line unit the tag index uses.
package paragraph

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
)

// ContextRadius is how many characters are kept on each side of a match.
const ContextRadius = 30

// MatchRecord locates the first match of a query in one paragraph. For tag
// results the same shape carries a line instead of a paragraph.
type MatchRecord struct {
	ParagraphIndex int    `json:"paragraphIndex"`
	ParagraphText  string `json:"paragraphText"`
	Context        string `json:"context"`
	MatchOffset    int    `json:"matchOffset"`
}

// SearchResult is one document with at least one match.
type SearchResult struct {
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	DocumentKind documents.Kind `json:"documentKind"`
	Matches      []MatchRecord  `json:"matches"`
}

// SearchInDocument returns one record per paragraph containing query,
// compared case-insensitively. Offsets count characters. An empty query
// matches nothing.
func SearchInDocument(content, query string) []MatchRecord {
	if query == "" || content == "" {
		return nil
	}
	needle := lowerRunes(query)
	var records []MatchRecord
	for i, para := range Paragraphs(content) {
		runes := []rune(para)
		offset := indexRunes(lowerRunes(para), needle)
		if offset < 0 {
			continue
		}
		start := max(offset-ContextRadius, 0)
		end := min(offset+len(needle)+ContextRadius, len(runes))
		records = append(records, MatchRecord{
			ParagraphIndex: i,
			ParagraphText:  para,
			Context:        string(runes[start:end]),
			MatchOffset:    offset,
		})
	}
	return records
}

// Paragraphs splits content on blank lines. A line is blank when it holds
// only whitespace. Paragraph lines are rejoined with "\n".
func Paragraphs(content string) []string {
	var (
		paras   []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			paras = append(paras, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return paras
}

// lowerRunes folds each rune on its own so the result stays index-aligned
// with the original text.
func lowerRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func indexRunes(haystack, needle []rune) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		match := true
		for j := 0; j < n; j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
