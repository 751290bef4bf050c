package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

func twoPageContent() *domain.DocumentContent {
	return &domain.DocumentContent{Pages: []domain.Page{
		{Index: 0, Paragraphs: []domain.Paragraph{{Text: "First paragraph."}, {Text: "Second paragraph."}}},
		{Index: 1, Paragraphs: []domain.Paragraph{{Text: "Third paragraph."}}},
	}}
}

func testIngestSettings() domain.IngestSettings {
	return domain.IngestSettings{
		AllowedExtensions: []string{"txt", "md", "pdf"},
		UploadDir:         "/uploads",
		ProcessedDir:      "/processed",
	}
}

type orchestratorFixture struct {
	orch      *Orchestrator
	extractor *mockExtractor
	index     *mockIndexStore
	stager    *mockStager
	journal   *mockJournal
}

func newOrchestratorFixture(t *testing.T, opts ...OrchestratorOption) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		extractor: &mockExtractor{exts: []string{"txt", "md"}, content: twoPageContent()},
		index:     newMockIndexStore(),
		stager:    newMockStager(),
		journal:   newMockJournal(),
	}
	opts = append([]OrchestratorOption{WithStatusJournal(f.journal)}, opts...)
	f.orch = NewOrchestrator(newMockRegistry(f.extractor), f.index, f.stager, testIngestSettings(), opts...)
	t.Cleanup(f.orch.Close)
	return f
}

func waitDone(t *testing.T, o *Orchestrator, id string) *domain.Document {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	doc, err := o.Wait(ctx, id)
	require.NoError(t, err)
	return doc
}

func TestNewDocumentID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^DOC[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewDocumentID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestOrchestrator_Enqueue_Completes(t *testing.T) {
	f := newOrchestratorFixture(t)

	result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "report.TXT", Content: []byte("x")})

	require.True(t, result.Accepted())
	assert.Equal(t, "report.TXT", result.FileName)
	assert.Equal(t, msgQueued, result.Message)
	assert.NotEmpty(t, result.DocumentID)

	doc := waitDone(t, f.orch, result.DocumentID)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, domain.ProgressCompleted, doc.Progress)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, 3, doc.ParagraphCount)
	assert.Empty(t, doc.Error)

	assert.Equal(t, []string{"/uploads/" + result.DocumentID + ".txt"}, f.stager.archivedPaths())
	assert.Equal(t, 1, f.index.addedCount())
}

func TestOrchestrator_Enqueue_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		message  string
	}{
		{"extension not allowed", "malware.exe", "Unsupported file type: exe"},
		{"no extension", "README", "Unsupported file type: "},
		{"allowed but no extractor", "scan.pdf", "Unsupported file type: pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)

			result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: tt.fileName})

			assert.False(t, result.Accepted())
			assert.Equal(t, domain.UploadError, result.Status)
			assert.Regexp(t, `^DOC[0-9A-F]{8}$`, result.DocumentID)
			assert.Equal(t, tt.message, result.Message)
			assert.Empty(t, f.orch.Statuses(context.Background()))

			// The id is only reported back; no status record exists for it.
			_, err := f.orch.Status(context.Background(), result.DocumentID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestOrchestrator_Enqueue_StageFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.stager.stageErr = errors.New("disk full")

	result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})

	assert.False(t, result.Accepted())
	assert.Contains(t, result.Message, "disk full")
	assert.NotEmpty(t, result.DocumentID)
	assert.Empty(t, f.orch.Statuses(context.Background()))
}

func TestOrchestrator_EnqueueBatch_PartialFailure(t *testing.T) {
	f := newOrchestratorFixture(t)

	results := f.orch.EnqueueBatch(context.Background(), []domain.FileUpload{
		{FileName: "a.txt"},
		{FileName: "b.exe"},
		{FileName: "c.md"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", results[0].FileName)
	assert.True(t, results[0].Accepted())
	assert.Equal(t, "b.exe", results[1].FileName)
	assert.False(t, results[1].Accepted())
	assert.Equal(t, "c.md", results[2].FileName)
	assert.True(t, results[2].Accepted())
	assert.NotEqual(t, results[0].DocumentID, results[2].DocumentID)

	for _, r := range []domain.UploadResult{results[0], results[2]} {
		doc := waitDone(t, f.orch, r.DocumentID)
		assert.Equal(t, domain.StatusCompleted, doc.Status)
	}

	statuses := f.orch.Statuses(context.Background())
	require.Len(t, statuses, 2)
	assert.Equal(t, results[0].DocumentID, statuses[0].ID)
	assert.Equal(t, results[2].DocumentID, statuses[1].ID)
}

func TestOrchestrator_StatusSequence_IsMonotonic(t *testing.T) {
	f := newOrchestratorFixture(t)

	result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	waitDone(t, f.orch, result.DocumentID)

	history := f.journal.historyOf(result.DocumentID)
	require.NotEmpty(t, history)

	assert.Equal(t, domain.StatusQueued, history[0].Status)
	assert.Equal(t, domain.ProgressQueued, history[0].Progress)

	last := history[len(history)-1]
	assert.Equal(t, domain.StatusCompleted, last.Status)
	assert.Equal(t, domain.ProgressCompleted, last.Progress)

	progress := make([]int, 0, len(history))
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		assert.GreaterOrEqual(t, cur.Progress, prev.Progress)
		assert.True(t, prev.Status == cur.Status || prev.Status.CanTransitionTo(cur.Status),
			"%s -> %s", prev.Status, cur.Status)
		progress = append(progress, cur.Progress)
	}
	assert.Equal(t, []int{
		domain.ProgressExtracting,
		domain.ProgressExtracted,
		domain.ProgressIndexing,
		domain.ProgressCompleted,
	}, progress)
}

func TestOrchestrator_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *orchestratorFixture)
		wantError string
	}{
		{
			name:      "extraction error",
			setup:     func(f *orchestratorFixture) { f.extractor.err = errors.New("corrupt file") },
			wantError: "corrupt file",
		},
		{
			name:      "extractor panic",
			setup:     func(f *orchestratorFixture) { f.extractor.panics = true },
			wantError: "panic: extractor exploded",
		},
		{
			name:      "index error",
			setup:     func(f *orchestratorFixture) { f.index.addErr = errors.New("database locked") },
			wantError: "database locked",
		},
		{
			name: "embedding error",
			setup: func(f *orchestratorFixture) {
				f.index.addErr = errors.Join(domain.ErrEmbeddingFailure, errors.New("rate limited"))
			},
			wantError: "rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)
			tt.setup(f)

			result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
			require.True(t, result.Accepted())

			doc := waitDone(t, f.orch, result.DocumentID)
			assert.Equal(t, domain.StatusError, doc.Status)
			assert.Contains(t, doc.Error, tt.wantError)
			assert.Equal(t, msgFailed, doc.Message)
			assert.GreaterOrEqual(t, doc.Progress, domain.ProgressExtracting)
			assert.Less(t, doc.Progress, domain.ProgressCompleted)
			assert.Zero(t, doc.PageCount)

			// Staged file is archived on failure too.
			assert.Len(t, f.stager.archivedPaths(), 1)
		})
	}
}

func TestOrchestrator_ExtractionErrorIsClassified(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.extractor.err = errors.New("bad bytes")

	result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	doc := waitDone(t, f.orch, result.DocumentID)

	assert.Contains(t, doc.Error, domain.ErrExtractionFailure.Error())
}

func TestOrchestrator_ConcurrentDocumentsAreIndependent(t *testing.T) {
	slow := &mockExtractor{exts: []string{"md"}, content: twoPageContent(), block: make(chan struct{})}
	fast := &mockExtractor{exts: []string{"txt"}, content: twoPageContent()}
	index := newMockIndexStore()
	orch := NewOrchestrator(newMockRegistry(slow, fast), index, newMockStager(), testIngestSettings())
	t.Cleanup(orch.Close)

	slowResult := orch.Enqueue(context.Background(), domain.FileUpload{FileName: "slow.md"})
	fastResult := orch.Enqueue(context.Background(), domain.FileUpload{FileName: "fast.txt"})

	fastDoc := waitDone(t, orch, fastResult.DocumentID)
	assert.Equal(t, domain.StatusCompleted, fastDoc.Status)

	slowDoc, err := orch.Status(context.Background(), slowResult.DocumentID)
	require.NoError(t, err)
	assert.False(t, slowDoc.Status.IsTerminal())

	close(slow.block)
	slowDoc = waitDone(t, orch, slowResult.DocumentID)
	assert.Equal(t, domain.StatusCompleted, slowDoc.Status)
}

func TestOrchestrator_ManyConcurrentUploads(t *testing.T) {
	f := newOrchestratorFixture(t)

	const n = 25
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "doc.txt"})
			ids[i] = r.DocumentID
		}(i)
	}
	wg.Wait()
	f.orch.Close()

	unique := make(map[string]bool)
	for _, id := range ids {
		require.NotEmpty(t, id)
		unique[id] = true
		doc, err := f.orch.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, doc.Status)
	}
	assert.Len(t, unique, n)
	assert.Equal(t, n, f.index.addedCount())
}

func TestOrchestrator_IDCollisionIsRedrawn(t *testing.T) {
	ids := []string{"DOC00000001", "DOC00000001", "DOC00000002"}
	var mu sync.Mutex
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id
	}
	f := newOrchestratorFixture(t, WithIDGenerator(gen))

	first := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	second := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "b.txt"})

	assert.Equal(t, "DOC00000001", first.DocumentID)
	assert.Equal(t, "DOC00000002", second.DocumentID)
}

func TestOrchestrator_TaskTimeout(t *testing.T) {
	settings := testIngestSettings()
	settings.TaskTimeout = 20 * time.Millisecond
	extractor := &mockExtractor{exts: []string{"txt"}, block: make(chan struct{})}
	orch := NewOrchestrator(newMockRegistry(extractor), newMockIndexStore(), newMockStager(), settings)
	t.Cleanup(orch.Close)

	result := orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	doc := waitDone(t, orch, result.DocumentID)

	assert.Equal(t, domain.StatusError, doc.Status)
	assert.Contains(t, doc.Error, context.DeadlineExceeded.Error())
}

func TestOrchestrator_TaskOutlivesRequestContext(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	result := f.orch.Enqueue(ctx, domain.FileUpload{FileName: "a.txt"})
	cancel()

	doc := waitDone(t, f.orch, result.DocumentID)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
}

func TestOrchestrator_Status(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		_, err := f.orch.Status(context.Background(), "DOCMISSING")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("falls back to journal", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		require.NoError(t, f.journal.Record(context.Background(), domain.Document{
			ID:       "DOCOLD00001",
			FileName: "old.pdf",
			Status:   domain.StatusCompleted,
			Progress: 100,
		}))

		doc, err := f.orch.Status(context.Background(), "DOCOLD00001")
		require.NoError(t, err)
		assert.Equal(t, "old.pdf", doc.FileName)
		assert.Equal(t, domain.StatusCompleted, doc.Status)
	})

	t.Run("journal error", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.journal.lookupFn = func(string) (*domain.Document, error) { return nil, errors.New("io error") }

		_, err := f.orch.Status(context.Background(), "DOCX")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returns a copy", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
		doc := waitDone(t, f.orch, result.DocumentID)

		doc.Status = domain.StatusError
		again, err := f.orch.Status(context.Background(), result.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, again.Status)
	})
}

func TestOrchestrator_Delete_NotImplemented(t *testing.T) {
	f := newOrchestratorFixture(t)
	result := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	waitDone(t, f.orch, result.DocumentID)

	err := f.orch.Delete(context.Background(), result.DocumentID)

	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	doc, err := f.orch.Status(context.Background(), result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 1, f.index.addedCount())
}

func TestOrchestrator_List(t *testing.T) {
	f := newOrchestratorFixture(t)
	a := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})
	b := f.orch.Enqueue(context.Background(), domain.FileUpload{FileName: "b.md"})
	waitDone(t, f.orch, a.DocumentID)
	waitDone(t, f.orch, b.DocumentID)

	summaries, err := f.orch.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, 2, s.PageCount)
		assert.Equal(t, 3, s.ParagraphCount)
	}

	f.index.documentsErr = errors.New("boom")
	_, err = f.orch.List(context.Background())
	assert.Error(t, err)
}

func TestOrchestrator_Wait(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		_, err := f.orch.Wait(context.Background(), "DOCNOPE")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("context cancelled", func(t *testing.T) {
		extractor := &mockExtractor{exts: []string{"txt"}, block: make(chan struct{})}
		orch := NewOrchestrator(newMockRegistry(extractor), newMockIndexStore(), newMockStager(), testIngestSettings())
		result := orch.Enqueue(context.Background(), domain.FileUpload{FileName: "a.txt"})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := orch.Wait(ctx, result.DocumentID)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(extractor.block)
		orch.Close()
	})
}
