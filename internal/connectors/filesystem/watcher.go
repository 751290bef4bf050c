// Package filesystem is the watch-folder connector: it enqueues files dropped
// into a directory exactly as if they had been uploaded.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
	"github.com/custodia-labs/doclens/internal/logger"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is read.
// Copies into the directory emit one create and several write events.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher enqueues new files in a single directory. Subdirectories and
// hidden files are ignored.
type Watcher struct {
	dir      string
	ingest   driving.IngestionService
	allowed  func(ext string) bool
	settle   time.Duration
	existing bool

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]string // path -> doc id, "" while in flight
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithExisting also enqueues files already present when Watch starts.
func WithExisting(enabled bool) Option {
	return func(w *Watcher) {
		w.existing = enabled
	}
}

// WithAllowed restricts which extensions are picked up. Without it every
// extension is passed to the ingestion service, which rejects unsupported ones.
func WithAllowed(allowed func(ext string) bool) Option {
	return func(w *Watcher) {
		w.allowed = allowed
	}
}

// New creates a watcher for dir.
func New(dir string, ingest driving.IngestionService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:     dir,
		ingest:  ingest,
		settle:  DefaultSettleDelay,
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is cancelled or the underlying watcher fails.
// Enqueue results are delivered to results when it is non-nil; sends never
// block the watch loop.
func (w *Watcher) Watch(ctx context.Context, results chan<- domain.UploadResult) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory: %w", w.dir, domain.ErrInvalidInput)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("watching %s", w.dir)
	defer w.stop()

	if w.existing {
		if err := w.scan(ctx, results); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event, results)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("watch %s: event overflow, rescanning", w.dir)
				if scanErr := w.scan(ctx, results); scanErr != nil {
					return scanErr
				}
				continue
			}
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
	}
}

// scan schedules every eligible file currently in the directory.
func (w *Watcher) scan(ctx context.Context, results chan<- domain.UploadResult) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.schedule(ctx, filepath.Join(w.dir, entry.Name()), results)
	}
	return nil
}

// handleEvent reacts to a single fsnotify event. It reports whether the
// event scheduled an enqueue.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event, results chan<- domain.UploadResult) bool {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.forget(event.Name)
		return false
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return w.schedule(ctx, event.Name, results)
	default:
		return false
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, results chan<- domain.UploadResult) bool {
	if !w.eligible(path) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, done := w.seen[path]; done {
		return false
	}
	if t, ok := w.pending[path]; ok {
		// A fired timer is already enqueueing; it reads the latest bytes.
		if t.Stop() {
			t.Reset(w.settle)
		}
		return true
	}

	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.enqueue(ctx, path, results)
	})
	return true
}

func (w *Watcher) eligible(path string) bool {
	if isHidden(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if w.allowed != nil && !w.allowed(domain.NormaliseExtension(path)) {
		logger.Debug("watch: skipping %s", path)
		return false
	}
	return true
}

func (w *Watcher) enqueue(ctx context.Context, path string, results chan<- domain.UploadResult) {
	// An empty id marks the path as in flight until Enqueue answers.
	w.mu.Lock()
	delete(w.pending, path)
	w.seen[path] = ""
	w.mu.Unlock()

	if ctx.Err() != nil {
		w.release(path)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		w.release(path)
		logger.Warn("watch: read %s: %v", path, err)
		return
	}

	result := w.ingest.Enqueue(ctx, domain.FileUpload{
		FileName: filepath.Base(path),
		Content:  content,
	})
	if result.Accepted() {
		w.mu.Lock()
		w.seen[path] = result.DocumentID
		w.mu.Unlock()
		logger.Info("watch: queued %s as %s", result.FileName, result.DocumentID)
	} else {
		w.release(path)
		logger.Warn("watch: %s rejected: %s", result.FileName, result.Message)
	}

	if results != nil {
		select {
		case results <- result:
		default:
		}
	}
}

// release drops the in-flight mark of a path that was not queued.
func (w *Watcher) release(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.seen[path]; ok && id == "" {
		delete(w.seen, path)
	}
}

// forget lets a path be picked up again after it was removed or renamed.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.seen, path)
	if t, ok := w.pending[path]; ok && t.Stop() {
		delete(w.pending, path)
		w.wg.Done()
	}
}

// stop cancels pending timers and waits for running enqueues.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			delete(w.pending, path)
			w.wg.Done()
		}
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// isHidden reports whether name starts with a dot. "." and ".." are not hidden.
func isHidden(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, ".")
}
