// Package office extracts legacy and open office formats (DOC, ODT, RTF)
// through docconv. DOC and RTF conversion needs antiword and unrtf on PATH.
package office

import (
	"context"

	"code.sajari.com/docconv/v2"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// ConvertFunc converts the file at path to plain text.
type ConvertFunc func(path string) (string, error)

// Extractor handles DOC, ODT and RTF documents.
type Extractor struct {
	convert ConvertFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter replaces the docconv conversion.
func WithConverter(fn ConvertFunc) Option {
	return func(e *Extractor) {
		e.convert = fn
	}
}

// New creates a new office extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{convert: convertPath}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func convertPath(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"doc", "odt", "rtf"}
}

// Extract converts the file at path. docconv yields no page structure,
// so page breaks are only kept where the converter emits form feeds.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, extractors.Failure(path, err)
	}
	body, err := e.convert(path)
	if err != nil {
		return nil, extractors.Failure(path, err)
	}
	return extractors.FromText(body), nil
}
