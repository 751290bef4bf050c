package domain

import "time"

// Paragraph is one block of text within a page.
type Paragraph struct {
	Text string `json:"text"`
}

// Page is an ordered list of paragraphs.
type Page struct {
	// Index is the zero-based position of the page within the document.
	Index int `json:"index"`

	Paragraphs []Paragraph `json:"paragraphs"`
}

// DocumentContent is the normalised text tree produced by a content extractor.
// It is consumed once by the index store and then discarded.
type DocumentContent struct {
	Pages []Page `json:"pages"`
}

// PageCount returns the number of pages.
func (c *DocumentContent) PageCount() int {
	if c == nil {
		return 0
	}
	return len(c.Pages)
}

// ParagraphCount returns the number of paragraphs across all pages.
func (c *DocumentContent) ParagraphCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for i := range c.Pages {
		total += len(c.Pages[i].Paragraphs)
	}
	return total
}

// DocumentRef identifies the document an index operation applies to.
type DocumentRef struct {
	ID       string
	FileName string
	FileType string
}

// Chunk is the atomic indexed unit: one paragraph, or a merge of
// adjacent paragraphs on the same page.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning document.
	DocumentID string

	// PageIndex is the zero-based page the chunk starts on.
	PageIndex int

	// ParagraphIndex is the zero-based paragraph within the page.
	ParagraphIndex int

	// Text is the chunk content.
	Text string

	// Embedding is computed once at insertion and never changed.
	Embedding []float32
}

// EmbeddingModel identifies the model that produced stored embeddings.
type EmbeddingModel struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

// IsZero returns true if no model has been recorded.
func (m EmbeddingModel) IsZero() bool {
	return m.Name == "" && m.Dimensions == 0
}

// Compatible reports whether embeddings from other can be compared with m.
func (m EmbeddingModel) Compatible(other EmbeddingModel) bool {
	if m.IsZero() || other.IsZero() {
		return true
	}
	return m.Dimensions == other.Dimensions
}

// DocumentSummary is the metadata the index keeps per completed document.
type DocumentSummary struct {
	DocumentID     string         `json:"doc_id"`
	FileName       string         `json:"file_name"`
	FileType       string         `json:"file_type"`
	PageCount      int            `json:"total_pages"`
	ParagraphCount int            `json:"total_paragraphs"`
	ChunkCount     int            `json:"total_chunks"`
	EmbeddingModel EmbeddingModel `json:"embedding_model"`
	IndexedAt      time.Time      `json:"indexed_at"`
}
