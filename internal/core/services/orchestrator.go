package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
	"github.com/custodia-labs/doclens/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.IngestionService = (*Orchestrator)(nil)

// Upload messages reported to callers.
const (
	msgQueued       = "Document queued for processing"
	msgExtracting   = "Extracting content"
	msgExtracted    = "Content extracted"
	msgIndexing     = "Indexing content"
	msgCompleted    = "Document processed"
	msgFailed       = "Processing failed"
	msgUnsupported  = "Unsupported file type: %s"
	msgStageFailure = "Failed to store upload: %v"
)

// NewDocumentID returns "DOC" followed by the first 8 upper-case hex digits of a random UUID.
func NewDocumentID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "DOC" + strings.ToUpper(hex[:8])
}

// task is the handle of the single processing run owned by one document.
type task struct {
	done chan struct{}
}

// Orchestrator drives uploaded documents through the ingestion lifecycle:
// queued -> processing -> completed | error.
//
// It owns the status map. Each accepted document gets exactly one task,
// created in Enqueue and never restarted.
type Orchestrator struct {
	extractors driven.ExtractorRegistry
	index      driven.IndexStore
	stager     driven.FileStager
	journal    driven.StatusJournal
	settings   domain.IngestSettings
	newID      func() string
	now        func() time.Time

	mu      sync.RWMutex
	records map[string]*domain.Document
	order   []string
	tasks   map[string]*task

	wg sync.WaitGroup
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithStatusJournal mirrors every status change to journal.
func WithStatusJournal(journal driven.StatusJournal) OrchestratorOption {
	return func(o *Orchestrator) {
		o.journal = journal
	}
}

// WithIDGenerator replaces NewDocumentID.
func WithIDGenerator(gen func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	extractors driven.ExtractorRegistry,
	index driven.IndexStore,
	stager driven.FileStager,
	settings domain.IngestSettings,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		extractors: extractors,
		index:      index,
		stager:     stager,
		settings:   settings,
		newID:      NewDocumentID,
		now:        time.Now,
		records:    make(map[string]*domain.Document),
		tasks:      make(map[string]*task),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enqueue validates one upload and schedules its processing task.
func (o *Orchestrator) Enqueue(ctx context.Context, upload domain.FileUpload) domain.UploadResult {
	result := domain.UploadResult{
		FileName: upload.FileName,
		Status:   domain.UploadError,
	}

	ext := domain.NormaliseExtension(upload.FileName)
	if !o.settings.IsAllowed(ext) {
		result.DocumentID = o.newID()
		result.Message = fmt.Sprintf(msgUnsupported, ext)
		logger.Debug("Rejected %q: extension %q not allowed", upload.FileName, ext)
		return result
	}

	extractor, err := o.extractors.Get(ext)
	if err != nil {
		result.DocumentID = o.newID()
		result.Message = fmt.Sprintf(msgUnsupported, ext)
		logger.Debug("Rejected %q: %v", upload.FileName, err)
		return result
	}

	id := o.reserveID()

	path, err := o.stager.Stage(ctx, id, ext, upload.Content)
	if err != nil {
		o.releaseID(id)
		result.DocumentID = id
		result.Message = fmt.Sprintf(msgStageFailure, err)
		logger.Warn("Staging %q failed: %v", upload.FileName, err)
		return result
	}

	now := o.now()
	doc := domain.Document{
		ID:        id,
		FileName:  upload.FileName,
		FileType:  ext,
		Status:    domain.StatusQueued,
		Progress:  domain.ProgressQueued,
		Message:   msgQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t := &task{done: make(chan struct{})}

	o.mu.Lock()
	o.records[id] = &doc
	o.tasks[id] = t
	o.mu.Unlock()

	o.recordJournal(doc)

	o.wg.Add(1)
	go o.run(t, doc, path, extractor)

	logger.Info("Queued %s (%s)", id, upload.FileName)

	result.DocumentID = id
	result.Status = domain.UploadProcessing
	result.Message = msgQueued
	return result
}

// EnqueueBatch enqueues every upload independently.
func (o *Orchestrator) EnqueueBatch(ctx context.Context, uploads []domain.FileUpload) []domain.UploadResult {
	results := make([]domain.UploadResult, 0, len(uploads))
	for _, upload := range uploads {
		results = append(results, o.Enqueue(ctx, upload))
	}
	return results
}

// Status returns a copy of the latest record for id.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.Document, error) {
	o.mu.RLock()
	rec, ok := o.records[id]
	var doc domain.Document
	if ok {
		doc = *rec
	}
	o.mu.RUnlock()

	if ok {
		return &doc, nil
	}

	if o.journal != nil {
		journaled, err := o.journal.Lookup(ctx, id)
		if err == nil {
			return journaled, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("status journal: %w", err)
		}
	}

	return nil, domain.ErrNotFound
}

// Statuses returns copies of all records created by this process, oldest first.
func (o *Orchestrator) Statuses(_ context.Context) []domain.Document {
	o.mu.RLock()
	defer o.mu.RUnlock()

	docs := make([]domain.Document, 0, len(o.order))
	for _, id := range o.order {
		if rec, ok := o.records[id]; ok {
			docs = append(docs, *rec)
		}
	}
	return docs
}

// List returns metadata for every document the index has completed.
func (o *Orchestrator) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	ids, err := o.index.DocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	summaries := make([]domain.DocumentSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := o.index.DocumentMetadata(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("document metadata %s: %w", id, err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// Delete is not supported. It never changes state.
func (o *Orchestrator) Delete(_ context.Context, id string) error {
	return fmt.Errorf("delete %s: document deletion: %w", id, domain.ErrNotImplemented)
}

// Wait blocks until the task for id has finished.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*domain.Document, error) {
	o.mu.RLock()
	t, ok := o.tasks[id]
	o.mu.RUnlock()

	if ok && t != nil {
		select {
		case <-t.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return o.Status(ctx, id)
}

// Close waits for every in-flight task to finish. Started tasks are never aborted.
func (o *Orchestrator) Close() {
	o.wg.Wait()
}

// reserveID picks an ID that is not yet in use and claims its slot in the order.
func (o *Orchestrator) reserveID() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	for {
		id := o.newID()
		if _, taken := o.records[id]; taken {
			continue
		}
		if _, taken := o.tasks[id]; taken {
			continue
		}
		o.order = append(o.order, id)
		// Placeholder so a concurrent Enqueue cannot draw the same ID.
		o.tasks[id] = nil
		return id
	}
}

// releaseID drops a reservation whose upload could not be staged.
func (o *Orchestrator) releaseID(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.tasks, id)
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// run is the processing task for one document. Every failure ends here and is
// recorded on the document; nothing propagates to other tasks or to Enqueue.
func (o *Orchestrator) run(t *task, doc domain.Document, path string, extractor driven.ContentExtractor) {
	defer o.wg.Done()
	defer close(t.done)

	ctx := context.Background()
	if o.settings.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.settings.TaskTimeout)
		defer cancel()
	}

	defer o.archive(doc.ID, path)

	defer func() {
		if r := recover(); r != nil {
			o.fail(doc.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := o.process(ctx, doc, path, extractor); err != nil {
		o.fail(doc.ID, err)
	}
}

// process runs extraction and indexing, advancing progress through the checkpoints.
func (o *Orchestrator) process(
	ctx context.Context,
	doc domain.Document,
	path string,
	extractor driven.ContentExtractor,
) error {
	logger.Section("Ingest " + doc.ID)

	// 1. EXTRACT
	o.advance(doc.ID, domain.StatusProcessing, domain.ProgressExtracting, msgExtracting)

	content, err := extractor.Extract(ctx, path)
	if err != nil {
		if !errors.Is(err, domain.ErrExtractionFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
		}
		return err
	}
	logger.Debug("Extracted %d pages, %d paragraphs from %s",
		content.PageCount(), content.ParagraphCount(), doc.FileName)

	o.advance(doc.ID, domain.StatusProcessing, domain.ProgressExtracted, msgExtracted)

	// 2. INDEX
	o.advance(doc.ID, domain.StatusProcessing, domain.ProgressIndexing, msgIndexing)

	ref := domain.DocumentRef{ID: doc.ID, FileName: doc.FileName, FileType: doc.FileType}
	summary, err := o.index.AddDocument(ctx, ref, content)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingFailure) &&
			!errors.Is(err, domain.ErrIndexWriteFailure) &&
			!errors.Is(err, domain.ErrDuplicateDocument) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexWriteFailure, err)
		}
		return err
	}

	// 3. COMPLETE
	o.update(doc.ID, func(d *domain.Document) {
		d.Status = domain.StatusCompleted
		d.Progress = domain.ProgressCompleted
		d.Message = msgCompleted
		d.PageCount = summary.PageCount
		d.ParagraphCount = summary.ParagraphCount
	})
	logger.Info("Completed %s: %d pages, %d paragraphs", doc.ID, summary.PageCount, summary.ParagraphCount)
	return nil
}

// advance moves a record to status at progress.
func (o *Orchestrator) advance(id string, status domain.DocumentStatus, progress int, message string) {
	o.update(id, func(d *domain.Document) {
		d.Status = status
		d.Progress = progress
		d.Message = message
	})
}

// fail marks a record as errored.
func (o *Orchestrator) fail(id string, err error) {
	logger.Warn("Processing %s failed: %v", id, err)
	o.update(id, func(d *domain.Document) {
		d.Status = domain.StatusError
		d.Message = msgFailed
		d.Error = err.Error()
	})
}

// update applies mutate to a copy of the record and stores it only if the
// transition goes forward. Progress never decreases.
func (o *Orchestrator) update(id string, mutate func(*domain.Document)) {
	o.mu.Lock()
	rec, ok := o.records[id]
	if !ok {
		o.mu.Unlock()
		return
	}

	next := *rec
	mutate(&next)

	if !rec.Status.CanTransitionTo(next.Status) {
		o.mu.Unlock()
		logger.Warn("Ignoring transition %s -> %s for %s", rec.Status, next.Status, id)
		return
	}
	if next.Progress < rec.Progress {
		next.Progress = rec.Progress
	}
	if next.Progress > domain.ProgressCompleted {
		next.Progress = domain.ProgressCompleted
	}
	next.UpdatedAt = o.now()

	*rec = next
	o.mu.Unlock()

	o.recordJournal(next)
}

// recordJournal mirrors a record. Journal failures are logged, never fatal.
func (o *Orchestrator) recordJournal(doc domain.Document) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(context.Background(), doc); err != nil {
		logger.Warn("Recording status of %s: %v", doc.ID, err)
	}
}

// archive moves the staged file out of the upload area.
func (o *Orchestrator) archive(id, path string) {
	if _, err := o.stager.Archive(context.Background(), path); err != nil {
		logger.Warn("Archiving upload of %s: %v", id, err)
	}
}
