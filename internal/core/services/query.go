package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
	"github.com/custodia-labs/doclens/internal/logger"
)

// Ensure QueryProcessor implements the interface.
var _ driving.QueryService = (*QueryProcessor)(nil)

// DefaultTopK is the number of passages returned when none is configured.
const DefaultTopK = 10

// QueryProcessor embeds a query and retrieves ranked passages from the index.
type QueryProcessor struct {
	embedder driven.EmbeddingService
	index    driven.IndexStore
	topK     int
}

// NewQueryProcessor creates a query processor. The embedder must be the one
// used at ingestion. A non-positive topK uses DefaultTopK.
func NewQueryProcessor(embedder driven.EmbeddingService, index driven.IndexStore, topK int) *QueryProcessor {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryProcessor{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

// Process embeds req.Query and searches the index. The passages are returned
// as ranked by the index, together with the original query text.
func (p *QueryProcessor) Process(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query: %w: empty query", domain.ErrInvalidInput)
	}
	if p.embedder == nil {
		return nil, fmt.Errorf("query: %w", domain.ErrEmbeddingUnavailable)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = p.topK
	}
	filter := uniqueIDs(req.DocumentIDs)

	logger.Section("Query")
	logger.Debug("Query: %q (top_k=%d, filter=%v)", query, topK, filter)

	// A filter naming only blank ids restricts the search to nothing.
	if len(req.DocumentIDs) > 0 && len(filter) == 0 {
		logger.Debug("Document filter has no usable ids; nothing to search")
		return &domain.QueryResult{
			Query:       req.Query,
			DocumentIDs: []string{},
			Passages:    []domain.RetrievedPassage{},
		}, nil
	}

	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w: %w", domain.ErrEmbeddingFailure, err)
	}

	if err := p.checkModel(ctx, len(embedding)); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	passages, err := p.index.Search(ctx, embedding, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}

	logger.Debug("Retrieved %d passages", len(passages))

	return &domain.QueryResult{
		Query:       req.Query,
		DocumentIDs: filter,
		Passages:    passages,
	}, nil
}

// checkModel compares the query embedder with the model the index recorded.
// A dimension mismatch makes scores meaningless and is rejected; a different
// model name with the same dimension is only warned about.
func (p *QueryProcessor) checkModel(ctx context.Context, dims int) error {
	recorded, err := p.index.EmbeddingModel(ctx)
	if err != nil {
		return fmt.Errorf("read embedding model: %w", err)
	}
	if recorded.IsZero() {
		return nil
	}

	current := domain.EmbeddingModel{Name: p.embedder.ModelName(), Dimensions: dims}
	if !recorded.Compatible(current) {
		return fmt.Errorf("%w: index built with %s (%d dims), query uses %s (%d dims)",
			domain.ErrEmbeddingModelMismatch,
			recorded.Name, recorded.Dimensions, current.Name, current.Dimensions)
	}
	if recorded.Name != current.Name {
		logger.Warn("Index built with embedding model %q but query uses %q; ranking may degrade",
			recorded.Name, current.Name)
	}
	return nil
}

// uniqueIDs drops blanks and duplicates while keeping order.
func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
