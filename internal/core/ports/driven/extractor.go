package driven

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// ContentExtractor reads a file and returns its text as pages of paragraphs.
// Failures are reported as domain.ErrExtractionFailure.
type ContentExtractor interface {
	// SupportedExtensions returns the lower-case extensions this extractor handles.
	SupportedExtensions() []string

	// Extract reads the file at path.
	Extract(ctx context.Context, path string) (*domain.DocumentContent, error)
}

// ExtractorRegistry selects a ContentExtractor by file extension.
type ExtractorRegistry interface {
	// Register adds an extractor for all of its supported extensions.
	Register(extractor ContentExtractor)

	// Get returns the extractor for ext, or domain.ErrUnsupportedFileType.
	Get(ext string) (ContentExtractor, error)

	// Extensions returns every extension with a registered extractor.
	Extensions() []string
}
