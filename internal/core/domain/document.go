package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus is a stage of the ingestion lifecycle.
type DocumentStatus string

// Lifecycle stages. Completed and Error are terminal.
const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusError      DocumentStatus = "error"
)

// Progress checkpoints reported while a document is processed.
const (
	ProgressQueued     = 0
	ProgressExtracting = 10
	ProgressExtracted  = 30
	ProgressIndexing   = 60
	ProgressCompleted  = 100
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for statuses that admit no further transition.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransitionTo reports whether moving from s to next goes forward.
// Staying in the same non-terminal status is allowed so progress can advance.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusQueued || next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusError
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is the observable status record of one uploaded file.
// It is created at upload time and mutated only by the task that owns its ID.
type Document struct {
	// ID is the opaque identifier assigned at upload.
	ID string `json:"doc_id"`

	// FileName is the name the file was uploaded with.
	FileName string `json:"file_name"`

	// FileType is the lower-case extension without the leading dot.
	FileType string `json:"file_type"`

	// Status is the current lifecycle stage.
	Status DocumentStatus `json:"status"`

	// Progress is a percentage in [0,100] that never decreases.
	Progress int `json:"progress"`

	// Message is a short human-readable description of the current stage.
	Message string `json:"message,omitempty"`

	// Error holds the failure message once Status is StatusError.
	Error string `json:"error,omitempty"`

	// PageCount is set only once Status is StatusCompleted.
	PageCount int `json:"pages,omitempty"`

	// ParagraphCount is set only once Status is StatusCompleted.
	ParagraphCount int `json:"paragraphs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileUpload is one file submitted for ingestion.
type FileUpload struct {
	// FileName is the declared name, used for extension validation.
	FileName string

	// Content is the raw file bytes.
	Content []byte
}

// UploadStatus is the per-file outcome reported for an upload.
type UploadStatus string

// Upload outcomes.
const (
	UploadProcessing UploadStatus = "processing"
	UploadError      UploadStatus = "error"
)

// UploadResult reports what happened to one file of a batch upload.
type UploadResult struct {
	DocumentID string       `json:"doc_id,omitempty"`
	FileName   string       `json:"file_name"`
	Status     UploadStatus `json:"status"`
	Message    string       `json:"message"`
}

// Accepted returns true if the file was queued for processing.
func (r UploadResult) Accepted() bool {
	return r.Status == UploadProcessing
}

// NormaliseExtension returns the lower-case extension of name without the dot.
// Returns an empty string when name has no extension.
func NormaliseExtension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
