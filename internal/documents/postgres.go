package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

// Document is a full row of the documents table.
type Document struct {
	Ref
	Content string
}

// Postgres reads and writes the documents table. The ingestion service
// writes through Upsert and Delete; the searcher only reads.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetContent(ctx context.Context, id string) (string, error) {
	var content string
	err := p.db.QueryRowContext(ctx, `SELECT content FROM documents WHERE id = $1`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", id, apperrors.ErrDocumentFetch, err)
	}
	return content, nil
}

func (p *Postgres) ListNotes(ctx context.Context) ([]Ref, error) {
	return p.list(ctx, KindNote)
}

func (p *Postgres) ListJournals(ctx context.Context) ([]Ref, error) {
	return p.list(ctx, KindJournal)
}

func (p *Postgres) list(ctx context.Context, kind Kind) ([]Ref, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, updated_at FROM documents WHERE kind = $1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s documents: %w: %v", kind, apperrors.ErrDocumentFetch, err)
	}
	defer rows.Close()

	refs := make([]Ref, 0)
	for rows.Next() {
		ref := Ref{Kind: kind}
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scanning %s document: %w: %v", kind, apperrors.ErrDocumentFetch, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s documents: %w: %v", kind, apperrors.ErrDocumentFetch, err)
	}
	return refs, nil
}

// Upsert stores doc and returns the modification time recorded for it.
func (p *Postgres) Upsert(ctx context.Context, doc Document) (time.Time, error) {
	modified := doc.ModifiedAt
	if modified.IsZero() {
		modified = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, kind, content, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, kind = EXCLUDED.kind,
		    content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Name, string(KindFromID(doc.ID)), doc.Content, modified,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return modified, nil
}

// Delete reports whether a row was removed.
func (p *Postgres) Delete(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting document %s: %w", id, err)
	}
	return n > 0, nil
}
