// Package parser classifies a raw search box query.
package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/tagger"
)

type QueryKind int

const (
	QueryEmpty QueryKind = iota
	QueryTag
	QueryText
)

func (k QueryKind) String() string {
	switch k {
	case QueryTag:
		return "tag"
	case QueryText:
		return "text"
	default:
		return "empty"
	}
}

// MarshalText lets QueryKind appear as a word in JSON responses.
func (k QueryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reverses MarshalText so cached responses decode.
func (k *QueryKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*k = QueryEmpty
	case "tag":
		*k = QueryTag
	case "text":
		*k = QueryText
	default:
		return fmt.Errorf("unknown query kind %q", text)
	}
	return nil
}

// QueryPlan is the classified query. RawQuery is the input unchanged: a
// tag query is looked up exactly as typed and a text query is matched
// exactly as typed, including surrounding spaces.
type QueryPlan struct {
	Kind     QueryKind
	RawQuery string
}

// Parse classifies query. Whitespace-only input is empty; input starting
// with the tag marker is a tag lookup; anything else is a text search.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{RawQuery: query}
	switch {
	case strings.TrimSpace(query) == "":
		plan.Kind = QueryEmpty
	case tagger.HasMarker(query):
		plan.Kind = QueryTag
	default:
		plan.Kind = QueryText
	}
	return plan
}
