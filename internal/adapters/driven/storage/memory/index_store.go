// Package memory provides an in-process implementation of driven.IndexStore.
// Nothing is persisted; the index lives as long as the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/doclens/internal/adapters/driven/storage"
	"github.com/custodia-labs/doclens/internal/chunker"
	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// snapshot is an immutable view of the index. Writers publish a new one.
// Each document owns its chunk slice, so publishing copies map entries only.
type snapshot struct {
	docs   map[string]*document
	chunks int
	model  domain.EmbeddingModel
}

type document struct {
	summary domain.DocumentSummary
	chunks  []domain.Chunk
}

// with returns a copy of s that also holds doc.
func (s *snapshot) with(doc *document) *snapshot {
	next := &snapshot{
		docs:   make(map[string]*document, len(s.docs)+1),
		chunks: s.chunks + len(doc.chunks),
		model:  s.model,
	}
	for id, d := range s.docs {
		next.docs[id] = d
	}
	next.docs[doc.summary.DocumentID] = doc
	if next.model.IsZero() {
		next.model = doc.summary.EmbeddingModel
	}
	return next
}

// IndexStore keeps chunks and embeddings in memory.
//
// Readers take the current snapshot under a read lock and search it without
// holding the lock. AddDocument embeds and builds the next snapshot outside
// the lock, then swaps it in if no other add published first.
type IndexStore struct {
	embedder driven.EmbeddingService
	chunker  *chunker.Chunker
	now      func() time.Time

	mu      sync.RWMutex
	current *snapshot
	pending map[string]bool
}

// NewIndexStore creates an empty in-memory index.
func NewIndexStore(embedder driven.EmbeddingService, c *chunker.Chunker) *IndexStore {
	if c == nil {
		c = chunker.New()
	}
	return &IndexStore{
		embedder: embedder,
		chunker:  c,
		now:      time.Now,
		current:  &snapshot{docs: make(map[string]*document)},
		pending:  make(map[string]bool),
	}
}

// AddDocument chunks, embeds and publishes one document.
func (s *IndexStore) AddDocument(
	ctx context.Context,
	ref domain.DocumentRef,
	content *domain.DocumentContent,
) (*domain.DocumentSummary, error) {
	if err := s.claim(ref.ID); err != nil {
		return nil, err
	}
	defer s.release(ref.ID)

	chunks, model, err := storage.Prepare(ctx, s.chunker, s.embedder, ref.ID, content)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", ref.ID, err)
	}

	doc := &document{
		summary: domain.DocumentSummary{
			DocumentID:     ref.ID,
			FileName:       ref.FileName,
			FileType:       ref.FileType,
			PageCount:      content.PageCount(),
			ParagraphCount: content.ParagraphCount(),
			ChunkCount:     len(chunks),
			EmbeddingModel: model,
			IndexedAt:      s.now(),
		},
		chunks: chunks,
	}

	for {
		old := s.view()
		if err := storage.CheckModel(old.model, model); err != nil {
			return nil, fmt.Errorf("add %s: %w", ref.ID, err)
		}
		next := old.with(doc)
		if s.publish(old, next) {
			summary := doc.summary
			return &summary, nil
		}
	}
}

// publish installs next if old is still current.
func (s *IndexStore) publish(old, next *snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != old {
		return false
	}
	s.current = next
	return true
}

// claim reserves id for an add, failing if it is indexed or in flight.
func (s *IndexStore) claim(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.current.docs[id]; exists || s.pending[id] {
		return fmt.Errorf("add %s: %w", id, domain.ErrDuplicateDocument)
	}
	s.pending[id] = true
	return nil
}

func (s *IndexStore) release(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *IndexStore) view() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Search ranks the chunks of the filtered documents against query.
func (s *IndexStore) Search(
	_ context.Context,
	query []float32,
	topK int,
	filter []string,
) ([]domain.RetrievedPassage, error) {
	snap := s.view()
	if snap.chunks == 0 {
		return []domain.RetrievedPassage{}, nil
	}
	if len(query) != snap.model.Dimensions {
		return nil, storage.CheckModel(snap.model, domain.EmbeddingModel{Name: "query", Dimensions: len(query)})
	}

	var candidates []domain.Chunk
	if allowed := storage.FilterSet(filter); allowed != nil {
		for id := range allowed {
			if d, ok := snap.docs[id]; ok {
				candidates = append(candidates, d.chunks...)
			}
		}
	} else {
		candidates = make([]domain.Chunk, 0, snap.chunks)
		for _, d := range snap.docs {
			candidates = append(candidates, d.chunks...)
		}
	}

	return storage.Rank(query, candidates, topK, func(id string) string {
		return snap.docs[id].summary.FileName
	}), nil
}

// DocumentIDs returns the IDs of all indexed documents, sorted.
func (s *IndexStore) DocumentIDs(_ context.Context) ([]string, error) {
	return storage.SortedIDs(s.view().docs), nil
}

// DocumentMetadata returns the summary recorded for id.
func (s *IndexStore) DocumentMetadata(_ context.Context, id string) (*domain.DocumentSummary, error) {
	d, ok := s.view().docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	summary := d.summary
	return &summary, nil
}

// Delete is not supported.
func (s *IndexStore) Delete(_ context.Context, id string) error {
	return fmt.Errorf("delete %s: %w", id, domain.ErrNotImplemented)
}

// EmbeddingModel returns the model recorded by the first non-empty add.
func (s *IndexStore) EmbeddingModel(_ context.Context) (domain.EmbeddingModel, error) {
	return s.view().model, nil
}

// Close is a no-op.
func (s *IndexStore) Close() error {
	return nil
}
