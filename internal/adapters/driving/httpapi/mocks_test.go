package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
// Status walks through statuses one call at a time and then repeats the last.
type mockIngestionService struct {
	mu        sync.Mutex
	uploads   []domain.FileUpload
	statuses  []domain.Document
	calls     int
	summaries []domain.DocumentSummary
	listErr   error
	statusErr error
}

func (m *mockIngestionService) Enqueue(_ context.Context, upload domain.FileUpload) domain.UploadResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads = append(m.uploads, upload)
	if domain.NormaliseExtension(upload.FileName) == "exe" {
		return domain.UploadResult{
			FileName: upload.FileName,
			Status:   domain.UploadError,
			Message:  "Unsupported file type: exe",
		}
	}
	return domain.UploadResult{
		DocumentID: "DOC0000000" + string(rune('0'+len(m.uploads))),
		FileName:   upload.FileName,
		Status:     domain.UploadProcessing,
		Message:    "Document queued for processing",
	}
}

func (m *mockIngestionService) EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult {
	results := make([]domain.UploadResult, 0, len(uploads))
	for _, u := range uploads {
		results = append(results, m.Enqueue(ctx, u))
	}
	return results
}

func (m *mockIngestionService) Status(_ context.Context, _ string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if len(m.statuses) == 0 {
		return nil, domain.ErrNotFound
	}
	i := m.calls
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.calls++
	doc := m.statuses[i]
	return &doc, nil
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
	return &domain.QueryResult{Query: req.Query, DocumentIDs: req.DocumentIDs, Passages: []domain.RetrievedPassage{}}, nil
}

// mockThemeService is a mock implementation of driving.ThemeService.
type mockThemeService struct {
	themes []domain.Theme
	err    error
	got    *domain.QueryResult
}

func (m *mockThemeService) Identify(_ context.Context, result *domain.QueryResult) ([]domain.Theme, error) {
	m.got = result
	return m.themes, m.err
}
