// Package validator checks editor save requests before anything is
// persisted and reports failures per field.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion"
)

const (
	DefaultMaxNameLength    = 255
	DefaultMaxContentLength = 4 << 20
)

type Limits struct {
	MaxNameLength    int
	MaxContentLength int
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// ValidateID rejects IDs that cannot name a file or a URL segment.
func ValidateID(id string) error {
	if msg := idProblem(id); msg != "" {
		return &ValidationError{Fields: map[string]string{"id": msg}}
	}
	return nil
}

// ValidateSave checks id and req against limits. Empty content is allowed;
// it clears the document's tags.
func ValidateSave(id string, req *ingestion.SaveRequest, limits Limits) error {
	if limits.MaxNameLength <= 0 {
		limits.MaxNameLength = DefaultMaxNameLength
	}
	if limits.MaxContentLength <= 0 {
		limits.MaxContentLength = DefaultMaxContentLength
	}
	errs := make(map[string]string)
	if msg := idProblem(id); msg != "" {
		errs["id"] = msg
	}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = "name is required"
	} else if utf8.RuneCountInString(req.Name) > limits.MaxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", limits.MaxNameLength)
	}
	if len(req.Content) > limits.MaxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", limits.MaxContentLength)
	} else if !utf8.ValidString(req.Content) {
		errs["content"] = "content must be valid UTF-8"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func idProblem(id string) string {
	switch {
	case strings.TrimSpace(id) == "":
		return "id is required"
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`):
		return "id must not contain path separators"
	case id == documents.JournalPrefix:
		return "journal id must name a file"
	}
	return ""
}
