package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

const lockRetryDelay = 25 * time.Millisecond

// File stores each key as a segment file in one directory. A sibling
// ".lock" file guards each key across processes: readers share it,
// writers take it exclusively.
type File struct {
	dir string
}

var _ Store = (*File)(nil)

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", apperrors.Invalid("file store: unusable key %q", key)
	}
	return filepath.Join(f.dir, key+".seg"), nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	lock := flock.New(path + ".lock")
	if _, err := lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("locking %s for read: %w", key, err)
	}
	defer lock.Unlock()

	payload, _, err := segment.Read(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, ErrNotFound
	case errors.Is(err, segment.ErrCorrupt):
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageCorrupt, err)
	case err != nil:
		return nil, err
	}
	return payload, nil
}

func (f *File) Put(ctx context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking %s for write: %w", key, err)
	}
	defer lock.Unlock()
	return segment.Write(path, value)
}

func (f *File) Close() error { return nil }
