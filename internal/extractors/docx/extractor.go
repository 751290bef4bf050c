// Package docx extracts Word OOXML documents. Each w:p element becomes a
// paragraph and explicit page breaks start a new page.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

const documentPart = "word/document.xml"

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"docx"}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, extractors.Failure(path, err)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, extractors.Failure(path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, extractors.Failure(path, err)
		}
		content, err := parseDocument(rc)
		rc.Close()
		if err != nil {
			return nil, extractors.Failure(path, err)
		}
		return content, nil
	}
	return nil, extractors.Failure(path, fmt.Errorf("missing %s", documentPart))
}

// parseDocument streams document.xml tokens. Text runs, tabs and line
// breaks build the current paragraph. Only explicit page breaks
// (w:br w:type="page") split pages; rendered page hints are ignored.
func parseDocument(r io.Reader) (*domain.DocumentContent, error) {
	dec := xml.NewDecoder(r)

	content := &domain.DocumentContent{}
	page := domain.Page{Index: 0}
	var para strings.Builder
	inText := false

	flushParagraph := func() {
		if text := strings.Join(strings.Fields(para.String()), " "); text != "" {
			page.Paragraphs = append(page.Paragraphs, domain.Paragraph{Text: text})
		}
		para.Reset()
	}
	flushPage := func() {
		content.Pages = append(content.Pages, page)
		page = domain.Page{Index: len(content.Pages)}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br":
				if attr(t, "type") == "page" {
					flushParagraph()
					flushPage()
				} else {
					para.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flushParagraph()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flushParagraph()
	if len(page.Paragraphs) > 0 || len(content.Pages) == 0 {
		content.Pages = append(content.Pages, page)
	}
	return content, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
