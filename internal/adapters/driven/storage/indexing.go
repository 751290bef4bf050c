// Package storage holds the chunk preparation and ranking shared by the
// index store adapters in the memory and sqlite subpackages.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/doclens/internal/chunker"
	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/vectors"
)

// Prepare chunks content and embeds every chunk in a single batch.
// Embeddings are stored L2-normalised. The returned model describes the
// embedder; it is zero when content has no chunks.
func Prepare(
	ctx context.Context,
	c *chunker.Chunker,
	embedder driven.EmbeddingService,
	docID string,
	content *domain.DocumentContent,
) ([]domain.Chunk, domain.EmbeddingModel, error) {
	chunks := c.Chunk(docID, content)
	if len(chunks) == 0 {
		return chunks, domain.EmbeddingModel{}, nil
	}
	if embedder == nil {
		return nil, domain.EmbeddingModel{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, domain.ErrEmbeddingUnavailable)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embeddings, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.EmbeddingModel{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, domain.EmbeddingModel{}, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingFailure, len(embeddings), len(chunks))
	}

	dims := len(embeddings[0])
	for i, emb := range embeddings {
		if len(emb) == 0 || len(emb) != dims {
			return nil, domain.EmbeddingModel{}, fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				domain.ErrEmbeddingFailure, i, len(emb), dims)
		}
		chunks[i].Embedding = vectors.Normalise(emb)
	}

	return chunks, domain.EmbeddingModel{Name: embedder.ModelName(), Dimensions: dims}, nil
}

// CheckModel reports an ErrEmbeddingModelMismatch when next cannot share an
// index with recorded.
func CheckModel(recorded, next domain.EmbeddingModel) error {
	if recorded.Compatible(next) {
		return nil
	}
	return fmt.Errorf("%w: index holds %s (%d dims), got %s (%d dims)",
		domain.ErrEmbeddingModelMismatch,
		recorded.Name, recorded.Dimensions, next.Name, next.Dimensions)
}

// FilterSet returns the set form of filter, or nil for no filtering.
func FilterSet(filter []string) map[string]bool {
	if len(filter) == 0 {
		return nil
	}
	set := make(map[string]bool, len(filter))
	for _, id := range filter {
		set[id] = true
	}
	return set
}

// Rank scores chunks against query and returns the best topK as passages,
// by descending score with ties broken by chunk ID. fileName resolves the
// display name of a document.
func Rank(query []float32, chunks []domain.Chunk, topK int, fileName func(docID string) string) []domain.RetrievedPassage {
	if topK <= 0 || len(chunks) == 0 {
		return []domain.RetrievedPassage{}
	}

	candidates := make([][]float32, len(chunks))
	for i := range chunks {
		candidates[i] = chunks[i].Embedding
	}
	tie := func(a, b int) bool { return chunks[a].ID < chunks[b].ID }

	scored := vectors.TopK(query, candidates, topK, tie)
	passages := make([]domain.RetrievedPassage, 0, len(scored))
	for _, s := range scored {
		ch := chunks[s.Index]
		passages = append(passages, domain.RetrievedPassage{
			ChunkID:        ch.ID,
			DocumentID:     ch.DocumentID,
			FileName:       fileName(ch.DocumentID),
			PageIndex:      ch.PageIndex,
			ParagraphIndex: ch.ParagraphIndex,
			Text:           ch.Text,
			Score:          s.Score,
			Embedding:      append([]float32(nil), ch.Embedding...),
		})
	}
	return passages
}

// SortedIDs returns the keys of m in ascending order.
func SortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
