package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/doclens/internal/adapters/driven/storage"
	"github.com/custodia-labs/doclens/internal/chunker"
	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/vectors"
)

// Keys of the index_meta table.
const (
	metaModelName       = "embedding_model"
	metaModelDimensions = "embedding_dimensions"
)

var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore persists chunks and their embeddings in SQLite.
//
// Each document is written in one transaction together with its metadata
// row, so a search never sees part of a document. Embedding happens before
// the transaction starts; only the commit is serialised.
type IndexStore struct {
	store    *Store
	embedder driven.EmbeddingService
	chunker  *chunker.Chunker
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]bool

	// writeMu serialises commits; SQLite allows a single writer.
	writeMu sync.Mutex
}

func newIndexStore(s *Store, embedder driven.EmbeddingService, c *chunker.Chunker) *IndexStore {
	if c == nil {
		c = chunker.New()
	}
	return &IndexStore{
		store:    s,
		embedder: embedder,
		chunker:  c,
		now:      time.Now,
		pending:  make(map[string]bool),
	}
}

// AddDocument chunks and embeds content, then commits the chunks and the
// document row in one transaction.
func (s *IndexStore) AddDocument(
	ctx context.Context,
	ref domain.DocumentRef,
	content *domain.DocumentContent,
) (*domain.DocumentSummary, error) {
	if err := s.claim(ctx, ref.ID); err != nil {
		return nil, err
	}
	defer s.release(ref.ID)

	chunks, model, err := storage.Prepare(ctx, s.chunker, s.embedder, ref.ID, content)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", ref.ID, err)
	}

	summary := domain.DocumentSummary{
		DocumentID:     ref.ID,
		FileName:       ref.FileName,
		FileType:       ref.FileType,
		PageCount:      content.PageCount(),
		ParagraphCount: content.ParagraphCount(),
		ChunkCount:     len(chunks),
		EmbeddingModel: model,
		IndexedAt:      s.now(),
	}

	if err := s.commit(ctx, summary, chunks); err != nil {
		return nil, fmt.Errorf("add %s: %w", ref.ID, err)
	}
	return &summary, nil
}

// commit writes one document atomically.
func (s *IndexStore) commit(ctx context.Context, summary domain.DocumentSummary, chunks []domain.Chunk) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrIndexWriteFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	recorded, err := readModel(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexWriteFailure, err)
	}
	if err := storage.CheckModel(recorded, summary.EmbeddingModel); err != nil {
		return err
	}
	if recorded.IsZero() && !summary.EmbeddingModel.IsZero() {
		if err := writeModel(ctx, tx, summary.EmbeddingModel); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrIndexWriteFailure, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO indexed_documents (id, file_name, file_type, page_count, paragraph_count,
			chunk_count, model_name, model_dimensions, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, summary.DocumentID, summary.FileName, summary.FileType, summary.PageCount,
		summary.ParagraphCount, summary.ChunkCount, summary.EmbeddingModel.Name,
		summary.EmbeddingModel.Dimensions, summary.IndexedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("%w: inserting document: %w", domain.ErrIndexWriteFailure, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, page_index, paragraph_index, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrIndexWriteFailure, err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		_, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.PageIndex, ch.ParagraphIndex,
			ch.Text, vectors.Encode(ch.Embedding))
		if err != nil {
			return fmt.Errorf("%w: inserting chunk %s: %w", domain.ErrIndexWriteFailure, ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", domain.ErrIndexWriteFailure, err)
	}
	return nil
}

// claim reserves id for an add, failing if it is indexed or in flight.
func (s *IndexStore) claim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[id] {
		return fmt.Errorf("add %s: %w", id, domain.ErrDuplicateDocument)
	}
	exists, err := s.exists(ctx, id)
	if err != nil {
		return fmt.Errorf("add %s: %w: %w", id, domain.ErrIndexWriteFailure, err)
	}
	if exists {
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

func (s *IndexStore) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM indexed_documents WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return n > 0, nil
}

// Search ranks the chunks of the filtered documents against query.
func (s *IndexStore) Search(
	ctx context.Context,
	query []float32,
	topK int,
	filter []string,
) ([]domain.RetrievedPassage, error) {
	model, err := s.EmbeddingModel(ctx)
	if err != nil {
		return nil, err
	}
	if model.IsZero() {
		return []domain.RetrievedPassage{}, nil
	}
	if len(query) != model.Dimensions {
		return nil, storage.CheckModel(model, domain.EmbeddingModel{Name: "query", Dimensions: len(query)})
	}
	if topK <= 0 {
		return []domain.RetrievedPassage{}, nil
	}

	q := `
		SELECT c.id, c.document_id, c.page_index, c.paragraph_index, c.content, c.embedding, d.file_name
		FROM chunks c
		JOIN indexed_documents d ON d.id = c.document_id
	`
	var args []any
	if set := storage.FilterSet(filter); set != nil {
		ids := storage.SortedIDs(set)
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		q += " WHERE c.document_id IN (" + placeholders + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	names := make(map[string]string)
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		var fileName string
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.PageIndex, &ch.ParagraphIndex,
			&ch.Text, &blob, &fileName); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if ch.Embedding, err = vectors.Decode(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding of chunk %s: %w", ch.ID, err)
		}
		names[ch.DocumentID] = fileName
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return storage.Rank(query, chunks, topK, func(id string) string { return names[id] }), nil
}

// DocumentIDs returns the IDs of all indexed documents, sorted.
func (s *IndexStore) DocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT id FROM indexed_documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DocumentMetadata returns the summary recorded for id.
func (s *IndexStore) DocumentMetadata(ctx context.Context, id string) (*domain.DocumentSummary, error) {
	var summary domain.DocumentSummary
	var indexedAt int64
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_type, page_count, paragraph_count, chunk_count,
			model_name, model_dimensions, indexed_at
		FROM indexed_documents WHERE id = ?
	`, id).Scan(&summary.DocumentID, &summary.FileName, &summary.FileType, &summary.PageCount,
		&summary.ParagraphCount, &summary.ChunkCount, &summary.EmbeddingModel.Name,
		&summary.EmbeddingModel.Dimensions, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", id, err)
	}
	summary.IndexedAt = time.Unix(0, indexedAt)
	return &summary, nil
}

// Delete is not supported.
func (s *IndexStore) Delete(_ context.Context, id string) error {
	return fmt.Errorf("delete %s: %w", id, domain.ErrNotImplemented)
}

// EmbeddingModel returns the model recorded by the first non-empty add.
func (s *IndexStore) EmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error) {
	return readModel(ctx, s.store.db)
}

// Close is a no-op; the owning Store closes the database.
func (s *IndexStore) Close() error {
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readModel(ctx context.Context, q queryer) (domain.EmbeddingModel, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM index_meta WHERE key IN (?, ?)",
		metaModelName, metaModelDimensions)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("reading embedding model: %w", err)
	}
	defer rows.Close()

	var model domain.EmbeddingModel
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.EmbeddingModel{}, fmt.Errorf("scanning index meta: %w", err)
		}
		switch key {
		case metaModelName:
			model.Name = value
		case metaModelDimensions:
			if model.Dimensions, err = strconv.Atoi(value); err != nil {
				return domain.EmbeddingModel{}, fmt.Errorf("parsing embedding dimensions %q: %w", value, err)
			}
		}
	}
	return model, rows.Err()
}

func writeModel(ctx context.Context, e execer, model domain.EmbeddingModel) error {
	const upsert = `INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := e.ExecContext(ctx, upsert, metaModelName, model.Name); err != nil {
		return fmt.Errorf("writing embedding model: %w", err)
	}
	if _, err := e.ExecContext(ctx, upsert, metaModelDimensions, strconv.Itoa(model.Dimensions)); err != nil {
		return fmt.Errorf("writing embedding dimensions: %w", err)
	}
	return nil
}
