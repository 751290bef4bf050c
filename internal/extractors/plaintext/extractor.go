// Package plaintext extracts text files. Blank lines separate paragraphs
// and form feeds separate pages.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"txt", "text", "log", "csv"}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	data, err := extractors.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.TrimPrefix(text, "\ufeff")
	return extractors.FromText(text), nil
}
