package driven

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// FileStager holds uploaded bytes on disk while a document is processed.
type FileStager interface {
	// Stage writes content for docID and returns the staged path.
	Stage(ctx context.Context, docID, ext string, content []byte) (string, error)

	// Archive moves a staged file out of the upload area once processing ends.
	// It is called on success and on failure.
	Archive(ctx context.Context, path string) (string, error)
}

// StatusJournal mirrors status records so they can be read after a restart.
// The orchestrator remains the only writer.
type StatusJournal interface {
	// Record upserts the status record.
	Record(ctx context.Context, doc domain.Document) error

	// Lookup returns a recorded status, or domain.ErrNotFound.
	Lookup(ctx context.Context, id string) (*domain.Document, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Document, error)
}
