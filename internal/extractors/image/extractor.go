// Package image extracts text from scanned images using tesseract OCR.
package image

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

const (
	tool = "tesseract"

	// InstallInstructions is shown when tesseract is missing.
	InstallInstructions = "install tesseract: brew install tesseract, or apt install tesseract-ocr"
)

// Extractor runs OCR over image files.
type Extractor struct {
	runner   extractors.CommandRunner
	language string
}

// New creates an image extractor. A nil runner uses os/exec; an empty
// language defaults to English.
func New(runner extractors.CommandRunner, language string) *Extractor {
	if runner == nil {
		runner = extractors.ExecRunner{}
	}
	if language == "" {
		language = "eng"
	}
	return &Extractor{runner: runner, language: language}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"png", "jpg", "jpeg", "tiff", "tif"}
}

// Extract OCRs the image at path. Multi-frame TIFFs produce one page per
// frame since tesseract separates them with form feeds.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, extractors.Failure(path, err)
	}
	out, err := e.runner.Run(ctx, tool, path, "stdout", "-l", e.language)
	if err != nil {
		return nil, extractors.ToolError(path, tool, InstallInstructions, err)
	}
	return extractors.FromText(string(out)), nil
}
