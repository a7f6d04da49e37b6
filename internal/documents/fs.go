package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

const treeFileName = "file_tree.json"

// FS reads the note application's data directory directly: notes are
// <notesDir>/<id>.md with display names from <notesDir>/file_tree.json,
// journals are <journalsDir>/<name>.md.
type FS struct {
	notesDir    string
	journalsDir string
	logger      *slog.Logger
}

var _ Store = (*FS)(nil)

func NewFS(notesDir, journalsDir string) *FS {
	return &FS{
		notesDir:    filepath.Clean(notesDir),
		journalsDir: filepath.Clean(journalsDir),
		logger:      slog.Default().With("component", "documents-fs"),
	}
}

func (s *FS) NotesDir() string    { return s.notesDir }
func (s *FS) JournalsDir() string { return s.journalsDir }

func (s *FS) pathFor(id string) (string, error) {
	if KindFromID(id) == KindJournal {
		name := JournalName(id)
		if !validSegment(name) {
			return "", apperrors.Invalid("invalid journal id %q", id)
		}
		return filepath.Join(s.journalsDir, name), nil
	}
	if !validSegment(id) {
		return "", apperrors.Invalid("invalid note id %q", id)
	}
	return filepath.Join(s.notesDir, id+".md"), nil
}

func (s *FS) GetContent(_ context.Context, id string) (string, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", id, apperrors.ErrDocumentFetch, err)
	}
	return string(data), nil
}

// ListNotes walks file_tree.json when present, listing only nodes whose
// file exists. Without a tree every top-level .md file is a note.
func (s *FS) ListNotes(_ context.Context) ([]Ref, error) {
	names, err := s.treeNames()
	if err != nil {
		return nil, err
	}
	if names == nil {
		return s.scan(s.notesDir, func(file string) (string, string) {
			return strings.TrimSuffix(file, ".md"), file
		}, KindNote)
	}
	refs := make([]Ref, 0, len(names))
	for _, entry := range names {
		info, err := os.Stat(filepath.Join(s.notesDir, entry.id+".md"))
		if err != nil {
			s.logger.Debug("tree node has no file", "doc_id", entry.id, "error", err)
			continue
		}
		refs = append(refs, Ref{ID: entry.id, Name: entry.name, Kind: KindNote, ModifiedAt: info.ModTime()})
	}
	return refs, nil
}

func (s *FS) ListJournals(_ context.Context) ([]Ref, error) {
	return s.scan(s.journalsDir, func(file string) (string, string) {
		return JournalID(file), file
	}, KindJournal)
}

type treeEntry struct{ id, name string }

// treeNames returns nil, nil when there is no tree file.
func (s *FS) treeNames() ([]treeEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.notesDir, treeFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading file tree: %w: %v", apperrors.ErrDocumentFetch, err)
	}
	nodes, err := parseTree(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDocumentFetch, err)
	}
	entries := make([]treeEntry, 0)
	walkFiles(nodes, func(n treeNode) {
		if validSegment(n.ID) {
			entries = append(entries, treeEntry{id: n.ID, name: n.Name})
		}
	})
	return entries, nil
}

func (s *FS) scan(dir string, ident func(file string) (id, name string), kind Kind) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Ref{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w: %v", dir, apperrors.ErrDocumentFetch, err)
	}
	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id, name := ident(entry.Name())
		refs = append(refs, Ref{ID: id, Name: name, Kind: kind, ModifiedAt: info.ModTime()})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// RefForPath maps a filesystem path back to the document it stores. The
// second result is false for paths that are not documents.
func (s *FS) RefForPath(path string) (Ref, bool) {
	path = filepath.Clean(path)
	dir, file := filepath.Split(path)
	dir = filepath.Clean(dir)
	if !strings.HasSuffix(file, ".md") {
		return Ref{}, false
	}
	switch dir {
	case s.journalsDir:
		return Ref{ID: JournalID(file), Name: file, Kind: KindJournal}, true
	case s.notesDir:
		id := strings.TrimSuffix(file, ".md")
		name := file
		if entries, err := s.treeNames(); err == nil {
			for _, e := range entries {
				if e.id == id {
					name = e.name
					break
				}
			}
		}
		return Ref{ID: id, Name: name, Kind: KindNote}, true
	}
	return Ref{}, false
}
