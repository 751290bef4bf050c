package filesystem

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
)

// mockIngestion records enqueued uploads.
type mockIngestion struct {
	mu      sync.Mutex
	uploads []domain.FileUpload
	reject  bool

	// When set, Enqueue signals entered and blocks until release is closed.
	entered chan struct{}
	release chan struct{}
}

var _ driving.IngestionService = (*mockIngestion)(nil)

func (m *mockIngestion) Enqueue(_ context.Context, upload domain.FileUpload) domain.UploadResult {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reject {
		return domain.UploadResult{FileName: upload.FileName, Status: domain.UploadError, Message: "rejected"}
	}
	m.uploads = append(m.uploads, upload)
	return domain.UploadResult{
		DocumentID: fmt.Sprintf("DOC%08d", len(m.uploads)),
		FileName:   upload.FileName,
		Status:     domain.UploadProcessing,
		Message:    "Document queued for processing",
	}
}

func (m *mockIngestion) EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult {
	out := make([]domain.UploadResult, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, m.Enqueue(ctx, u))
	}
	return out
}

func (m *mockIngestion) Status(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngestion) Statuses(_ context.Context) []domain.Document { return nil }

func (m *mockIngestion) List(_ context.Context) ([]domain.DocumentSummary, error) { return nil, nil }

func (m *mockIngestion) Delete(_ context.Context, _ string) error { return domain.ErrNotImplemented }

func (m *mockIngestion) Wait(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngestion) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.uploads))
	for _, u := range m.uploads {
		out = append(out, u.FileName)
	}
	return out
}
