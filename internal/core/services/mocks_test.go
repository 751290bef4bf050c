package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// --- Extraction ---

// mockExtractor implements driven.ContentExtractor for testing.
type mockExtractor struct {
	exts    []string
	content *domain.DocumentContent
	err     error
	panics  bool

	// block, when set, holds Extract until it is closed or ctx is done.
	block chan struct{}

	mu    sync.Mutex
	paths []string
}

func (m *mockExtractor) SupportedExtensions() []string { return m.exts }

func (m *mockExtractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panics {
		panic("extractor exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.content, nil
}

// mockRegistry implements driven.ExtractorRegistry for testing.
type mockRegistry struct {
	byExt map[string]driven.ContentExtractor
}

func newMockRegistry(extractors ...*mockExtractor) *mockRegistry {
	r := &mockRegistry{byExt: make(map[string]driven.ContentExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

func (r *mockRegistry) Register(e driven.ContentExtractor) {
	for _, ext := range e.SupportedExtensions() {
		r.byExt[ext] = e
	}
}

func (r *mockRegistry) Get(ext string) (driven.ContentExtractor, error) {
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
}

func (r *mockRegistry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// --- Index ---

// mockIndexStore implements driven.IndexStore for testing.
type mockIndexStore struct {
	mu        sync.Mutex
	added     map[string]domain.DocumentRef
	addErr    error
	searchErr error
	passages  []domain.RetrievedPassage
	model     domain.EmbeddingModel

	searchCalls  int
	lastQuery    []float32
	lastTopK     int
	lastFilter   []string
	summaries    map[string]*domain.DocumentSummary
	metadataErr  error
	documentsErr error
}

func newMockIndexStore() *mockIndexStore {
	return &mockIndexStore{
		added:     make(map[string]domain.DocumentRef),
		summaries: make(map[string]*domain.DocumentSummary),
	}
}

func (m *mockIndexStore) AddDocument(
	_ context.Context,
	ref domain.DocumentRef,
	content *domain.DocumentContent,
) (*domain.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.addErr != nil {
		return nil, m.addErr
	}
	if _, exists := m.added[ref.ID]; exists {
		return nil, domain.ErrDuplicateDocument
	}
	m.added[ref.ID] = ref
	summary := &domain.DocumentSummary{
		DocumentID:     ref.ID,
		FileName:       ref.FileName,
		FileType:       ref.FileType,
		PageCount:      content.PageCount(),
		ParagraphCount: content.ParagraphCount(),
		ChunkCount:     content.ParagraphCount(),
	}
	m.summaries[ref.ID] = summary
	return summary, nil
}

func (m *mockIndexStore) Search(
	_ context.Context,
	query []float32,
	topK int,
	filter []string,
) ([]domain.RetrievedPassage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searchCalls++
	m.lastQuery = query
	m.lastTopK = topK
	m.lastFilter = filter
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.passages, nil
}

func (m *mockIndexStore) DocumentIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.documentsErr != nil {
		return nil, m.documentsErr
	}
	ids := make([]string, 0, len(m.summaries))
	for id := range m.summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockIndexStore) DocumentMetadata(_ context.Context, id string) (*domain.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	s, ok := m.summaries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockIndexStore) Delete(_ context.Context, _ string) error {
	return domain.ErrNotImplemented
}

func (m *mockIndexStore) EmbeddingModel(_ context.Context) (domain.EmbeddingModel, error) {
	return m.model, nil
}

func (m *mockIndexStore) Close() error { return nil }

func (m *mockIndexStore) addedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.added)
}

// --- Staging ---

// mockStager implements driven.FileStager for testing.
type mockStager struct {
	mu       sync.Mutex
	stageErr error
	staged   map[string][]byte
	archived []string
}

func newMockStager() *mockStager {
	return &mockStager{staged: make(map[string][]byte)}
}

func (m *mockStager) Stage(_ context.Context, docID, ext string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stageErr != nil {
		return "", m.stageErr
	}
	path := "/uploads/" + docID + "." + ext
	m.staged[path] = content
	return path, nil
}

func (m *mockStager) Archive(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.archived = append(m.archived, path)
	return "/processed" + path, nil
}

func (m *mockStager) archivedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.archived...)
}

// mockJournal implements driven.StatusJournal and keeps every recorded version.
type mockJournal struct {
	mu       sync.Mutex
	history  map[string][]domain.Document
	stored   map[string]domain.Document
	lookupFn func(id string) (*domain.Document, error)
}

func newMockJournal() *mockJournal {
	return &mockJournal{
		history: make(map[string][]domain.Document),
		stored:  make(map[string]domain.Document),
	}
}

func (m *mockJournal) Record(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[doc.ID] = append(m.history[doc.ID], doc)
	m.stored[doc.ID] = doc
	return nil
}

func (m *mockJournal) Lookup(_ context.Context, id string) (*domain.Document, error) {
	if m.lookupFn != nil {
		return m.lookupFn(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.stored[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockJournal) Recent(_ context.Context, limit int) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := make([]domain.Document, 0, len(m.stored))
	for _, d := range m.stored {
		docs = append(docs, d)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *mockJournal) historyOf(id string) []domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Document(nil), m.history[id]...)
}

// --- AI ---

// mockEmbedder implements driven.EmbeddingService for testing.
// Texts found in vectors get that vector; anything else gets fallback.
type mockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	dims     int
	model    string
	err      error
	calls    int
	batched  [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.lookup(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.batched = append(m.batched, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.lookup(t)
	}
	return out, nil
}

func (m *mockEmbedder) lookup(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback
	}
	return make([]float32, m.Dimensions())
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 3
}

func (m *mockEmbedder) ModelName() string {
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockSummariser implements driven.Summariser for testing.
type mockSummariser struct {
	mu       sync.Mutex
	summary  string
	err      error
	received [][]string
}

func (m *mockSummariser) Summarise(_ context.Context, _ string, passages []string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.received = append(m.received, passages)
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

func (m *mockSummariser) ModelName() string            { return "mock-llm" }
func (m *mockSummariser) Ping(_ context.Context) error { return nil }
func (m *mockSummariser) Close() error                 { return nil }

// --- Config ---

// mockConfigStore implements driven.ConfigStore in memory.
type mockConfigStore struct {
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}


func (m *mockConfigStore) Set(key string, value any) error {
	if key == "" {
		return errors.New("empty key")
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return ":memory:" }
