package mcp

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

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
	if m.result == nil {
		return &domain.QueryResult{Query: req.Query, Passages: []domain.RetrievedPassage{}}, nil
	}
	return m.result, nil
}

// mockThemeService is a mock implementation of driving.ThemeService.
type mockThemeService struct {
	themes []domain.Theme
	err    error
}

func (m *mockThemeService) Identify(_ context.Context, _ *domain.QueryResult) ([]domain.Theme, error) {
	return m.themes, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	result    domain.UploadResult
	uploads   []domain.FileUpload
	doc       *domain.Document
	summaries []domain.DocumentSummary
	err       error
	blockWait bool
	statuses  []domain.Document
}

func (m *mockIngestionService) Enqueue(_ context.Context, upload domain.FileUpload) domain.UploadResult {
	m.uploads = append(m.uploads, upload)
	r := m.result
	r.FileName = upload.FileName
	return r
}

func (m *mockIngestionService) EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult {
	out := make([]domain.UploadResult, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, m.Enqueue(ctx, u))
	}
	return out
}

func (m *mockIngestionService) Status(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.doc == nil {
		return nil, domain.ErrNotFound
	}
	return m.doc, nil
}

func (m *mockIngestionService) Statuses(_ context.Context) []domain.Document { return m.statuses }

func (m *mockIngestionService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.summaries, m.err
}

func (m *mockIngestionService) Delete(_ context.Context, _ string) error {
	return domain.ErrNotImplemented
}

func (m *mockIngestionService) Wait(ctx context.Context, id string) (*domain.Document, error) {
	if m.blockWait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.Status(ctx, id)
}
