package extractors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// pageBreak separates pages in text produced by pdftotext and similar tools.
const pageBreak = "\f"

// Failure wraps err as an extraction failure for path.
func Failure(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailure, path, err)
}

// ReadFile reads path, honouring ctx cancellation before the read.
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, Failure(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Failure(path, err)
	}
	return data, nil
}

// SplitParagraphs splits text into paragraphs on blank lines. Lines within
// a paragraph are joined with single spaces and blank paragraphs dropped.
func SplitParagraphs(text string) []domain.Paragraph {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var paragraphs []domain.Paragraph
	var lines []string
	flush := func() {
		if len(lines) == 0 {
			return
		}
		paragraphs = append(paragraphs, domain.Paragraph{Text: strings.Join(lines, " ")})
		lines = lines[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return paragraphs
}

// FromText builds content from plain text, one page per form-feed
// separated section. A trailing form feed does not open a new page.
func FromText(text string) *domain.DocumentContent {
	sections := strings.Split(text, pageBreak)
	if len(sections) > 1 && strings.TrimSpace(sections[len(sections)-1]) == "" {
		sections = sections[:len(sections)-1]
	}

	content := &domain.DocumentContent{Pages: make([]domain.Page, 0, len(sections))}
	for i, section := range sections {
		content.Pages = append(content.Pages, domain.Page{
			Index:      i,
			Paragraphs: SplitParagraphs(section),
		})
	}
	return content
}

// SinglePage wraps paragraphs as a one-page document.
func SinglePage(paragraphs []domain.Paragraph) *domain.DocumentContent {
	return &domain.DocumentContent{Pages: []domain.Page{{Index: 0, Paragraphs: paragraphs}}}
}
