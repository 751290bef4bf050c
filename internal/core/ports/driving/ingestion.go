// Package driving holds the three entry points every front end (cli, mcp,
// httpapi) calls: ingestion, retrieval and theme detection.
package driving

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// IngestionService drives documents from upload to searchable.
type IngestionService interface {
	// Enqueue validates and queues one file. Rejected files are reported with
	// domain.UploadError and never produce a status record.
	Enqueue(ctx context.Context, upload domain.FileUpload) domain.UploadResult

	// EnqueueBatch enqueues each file independently.
	EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult

	// Status returns the latest status record, or domain.ErrNotFound.
	Status(ctx context.Context, id string) (*domain.Document, error)

	// Statuses returns the status records known to this process, oldest first.
	Statuses(ctx context.Context) []domain.Document

	// List returns metadata for every completed document.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Delete always fails with domain.ErrNotImplemented.
	Delete(ctx context.Context, id string) error

	// Wait blocks until the task for id has finished and returns its final record.
	Wait(ctx context.Context, id string) (*domain.Document, error)
}

// QueryService turns a query into ranked passages.
type QueryService interface {
	// Process embeds the query and searches the index.
	// An empty result is not an error.
	Process(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}

// ThemeService groups retrieved passages into cited themes.
type ThemeService interface {
	// Identify clusters the passages of result. Empty input yields no themes.
	Identify(ctx context.Context, result *domain.QueryResult) ([]domain.Theme, error)
}
