package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// statusJournal implements driven.StatusJournal.
type statusJournal struct {
	store *Store
}

var _ driven.StatusJournal = (*statusJournal)(nil)

const statusColumns = `id, file_name, file_type, status, progress, message, error,
	page_count, paragraph_count, created_at, updated_at`

// Record upserts the status record.
func (j *statusJournal) Record(ctx context.Context, doc domain.Document) error {
	_, err := j.store.db.ExecContext(ctx, `
		INSERT INTO document_status (`+statusColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			message = excluded.message,
			error = excluded.error,
			page_count = excluded.page_count,
			paragraph_count = excluded.paragraph_count,
			updated_at = excluded.updated_at
	`, doc.ID, doc.FileName, doc.FileType, string(doc.Status), doc.Progress, doc.Message, doc.Error,
		doc.PageCount, doc.ParagraphCount, doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("recording status of %s: %w", doc.ID, err)
	}
	return nil
}

// Lookup returns a recorded status, or domain.ErrNotFound.
func (j *statusJournal) Lookup(ctx context.Context, id string) (*domain.Document, error) {
	row := j.store.db.QueryRowContext(ctx, "SELECT "+statusColumns+" FROM document_status WHERE id = ?", id)
	doc, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Recent returns up to limit records, newest first.
func (j *statusJournal) Recent(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		return []domain.Document{}, nil
	}

	rows, err := j.store.db.QueryContext(ctx,
		"SELECT "+statusColumns+" FROM document_status ORDER BY updated_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying statuses: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatus(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(&doc.ID, &doc.FileName, &doc.FileType, &status, &doc.Progress, &doc.Message,
		&doc.Error, &doc.PageCount, &doc.ParagraphCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning status: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt = time.Unix(0, createdAt)
	doc.UpdatedAt = time.Unix(0, updatedAt)
	return &doc, nil
}
