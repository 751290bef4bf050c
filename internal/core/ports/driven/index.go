package driven

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// IndexStore owns chunk embeddings and per-document metadata.
//
// AddDocument is atomic per document: Search never observes a partially
// inserted document. Adds for different documents must not block each other.
type IndexStore interface {
	// AddDocument chunks and embeds content and stores it with one metadata record.
	// Returns domain.ErrDuplicateDocument if the ID is already present.
	AddDocument(ctx context.Context, ref domain.DocumentRef, content *domain.DocumentContent) (*domain.DocumentSummary, error)

	// Search returns up to topK passages by descending cosine similarity.
	// A non-empty filter restricts results to the listed document IDs.
	Search(ctx context.Context, query []float32, topK int, filter []string) ([]domain.RetrievedPassage, error)

	// DocumentIDs returns the IDs of all fully indexed documents, sorted.
	DocumentIDs(ctx context.Context) ([]string, error)

	// DocumentMetadata returns the summary for id, or domain.ErrNotFound.
	DocumentMetadata(ctx context.Context, id string) (*domain.DocumentSummary, error)

	// Delete always fails with domain.ErrNotImplemented.
	Delete(ctx context.Context, id string) error

	// EmbeddingModel returns the model recorded by the first insert.
	EmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error)

	// Close releases resources.
	Close() error
}
