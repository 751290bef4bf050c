// Package html extracts HTML documents using goquery.
package html

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// noise is removed before text is collected.
const noise = "script, style, noscript, nav, header, footer, template, iframe, svg"

// blocks are the elements that each contribute one paragraph. Nested
// matches are skipped so list items inside a blockquote are not repeated.
const blocks = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, blockquote, pre, td, th, figcaption, caption"

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"html", "htm", "xhtml"}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	data, err := extractors.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, extractors.Failure(path, err)
	}
	return extractors.SinglePage(paragraphs(doc)), nil
}

func paragraphs(doc *goquery.Document) []domain.Paragraph {
	doc.Find(noise).Remove()

	var out []domain.Paragraph
	doc.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(blocks).Length() > 0 {
			return
		}
		if text := collapse(s.Text()); text != "" {
			out = append(out, domain.Paragraph{Text: text})
		}
	})
	if len(out) > 0 {
		return out
	}

	// Pages without block markup fall back to the body text.
	if text := collapse(doc.Find("body").Text()); text != "" {
		out = append(out, domain.Paragraph{Text: text})
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
