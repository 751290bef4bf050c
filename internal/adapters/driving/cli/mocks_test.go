package cli

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
// Accepted uploads complete immediately unless failed names them.
type mockIngestionService struct {
	uploads   []domain.FileUpload
	docs      map[string]*domain.Document
	summaries []domain.DocumentSummary
	failed    map[string]bool
	listErr   error
}

func newMockIngestion() *mockIngestionService {
	return &mockIngestionService{docs: make(map[string]*domain.Document)}
}

func (m *mockIngestionService) Enqueue(_ context.Context, upload domain.FileUpload) domain.UploadResult {
	m.uploads = append(m.uploads, upload)
	ext := domain.NormaliseExtension(upload.FileName)
	if ext == "exe" {
		return domain.UploadResult{FileName: upload.FileName, Status: domain.UploadError, Message: "Unsupported file type: exe"}
	}

	id := "DOC0000000" + string(rune('0'+len(m.uploads)))
	doc := &domain.Document{
		ID: id, FileName: upload.FileName, FileType: ext,
		Status: domain.StatusCompleted, Progress: 100, PageCount: 1, ParagraphCount: 2,
	}
	if m.failed[upload.FileName] {
		doc.Status, doc.Progress, doc.PageCount, doc.ParagraphCount = domain.StatusError, 30, 0, 0
		doc.Error = "extraction failed"
	}
	m.docs[id] = doc
	return domain.UploadResult{DocumentID: id, FileName: upload.FileName, Status: domain.UploadProcessing, Message: "Document queued for processing"}
}

func (m *mockIngestionService) EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult {
	results := make([]domain.UploadResult, 0, len(uploads))
	for _, u := range uploads {
		results = append(results, m.Enqueue(ctx, u))
	}
	return results
}

func (m *mockIngestionService) Status(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockIngestionService) Statuses(_ context.Context) []domain.Document { return nil }

func (m *mockIngestionService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.summaries, m.listErr
}

func (m *mockIngestionService) Delete(_ context.Context, _ string) error {
	return domain.ErrNotImplemented
}

func (m *mockIngestionService) Wait(ctx context.Context, id string) (*domain.Document, error) {
	return m.Status(ctx, id)
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result *domain.QueryResult
	err    error
	got    domain.QueryRequest
}

func (m *mockQueryService) Process(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.QueryResult{Query: req.Query}, nil
}

// mockThemeService is a mock implementation of driving.ThemeService.
type mockThemeService struct {
	themes []domain.Theme
	err    error
	calls  int
}

func (m *mockThemeService) Identify(_ context.Context, _ *domain.QueryResult) ([]domain.Theme, error) {
	m.calls++
	return m.themes, m.err
}
