// Package pdf extracts PDF documents with pdftotext from poppler.
// pdftotext separates pages with form feeds, which become page boundaries.
package pdf

import (
	"context"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

const (
	tool = "pdftotext"

	// InstallInstructions is shown when pdftotext is missing.
	InstallInstructions = "install poppler: brew install poppler, or apt install poppler-utils"
)

// Extractor handles PDF documents.
type Extractor struct {
	runner extractors.CommandRunner
}

// New creates a PDF extractor. A nil runner uses os/exec.
func New(runner extractors.CommandRunner) *Extractor {
	if runner == nil {
		runner = extractors.ExecRunner{}
	}
	return &Extractor{runner: runner}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"pdf"}
}

// Extract runs pdftotext on path and splits its output into pages.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, extractors.Failure(path, err)
	}
	out, err := e.runner.Run(ctx, tool, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, extractors.ToolError(path, tool, InstallInstructions, err)
	}
	return extractors.FromText(string(out)), nil
}
