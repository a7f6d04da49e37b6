// Package tagger finds inline "#tag" markers in document text. It is the
// only place that knows what a tag looks like; the index and the query
// router import Marker and IsTag from here.
package tagger

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/index"
)

// Marker prefixes every tag and every tag query.
const Marker = "#"

// ContextRadius is how many characters of the line are kept on each side
// of a match in Occurrence.Context.
const ContextRadius = 30

// Word characters are letters of any script with their combining marks,
// decimal digits and underscore. Tags are taken verbatim: "#Go" and "#go"
// are different tags.
var tagPattern = regexp.MustCompile(`#[\p{L}\p{M}\p{Nd}_]+`)

// ExtractTags returns every tag occurrence in content keyed by tag. Lines
// are split on "\n" and numbered from zero; offsets and context bounds
// count characters, not bytes. Repeated occurrences are all kept.
func ExtractTags(content string) map[string][]index.Occurrence {
	tags := make(map[string][]index.Occurrence)
	if content == "" {
		return tags
	}
	for lineIndex, line := range strings.Split(content, "\n") {
		matches := tagPattern.FindAllStringIndex(line, -1)
		if len(matches) == 0 {
			continue
		}
		runes := []rune(line)
		for _, m := range matches {
			tag := line[m[0]:m[1]]
			offset := utf8.RuneCountInString(line[:m[0]])
			tags[tag] = append(tags[tag], index.Occurrence{
				LineIndex:   lineIndex,
				LineText:    line,
				Context:     window(runes, offset, utf8.RuneCountInString(tag)),
				MatchOffset: offset,
			})
		}
	}
	return tags
}

// IsTag reports whether s is exactly one well-formed tag.
func IsTag(s string) bool {
	loc := tagPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// HasMarker reports whether a query should be routed to the tag index.
func HasMarker(query string) bool {
	return strings.HasPrefix(query, Marker)
}

func window(runes []rune, offset, length int) string {
	start := max(offset-ContextRadius, 0)
	end := min(offset+length+ContextRadius, len(runes))
	return string(runes[start:end])
}
