// Package chunker turns extracted pages into indexable chunks.
//
// The unit is the paragraph. Adjacent paragraphs on the same page may be
// merged, and a paragraph longer than the size limit is split into
// overlapping windows. Chunks never span pages.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// DefaultMaxChars is the default upper bound on chunk length in runes.
const DefaultMaxChars = 2000

// DefaultOverlap is the default number of runes shared by consecutive windows.
const DefaultOverlap = 200

// Chunker splits document content into chunks.
type Chunker struct {
	merge    int
	maxChars int
	overlap  int
	newID    func() string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMergeParagraphs merges up to n adjacent paragraphs of a page into one chunk.
func WithMergeParagraphs(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.merge = n
		}
	}
}

// WithMaxChars sets the chunk length limit in runes.
func WithMaxChars(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxChars = size
		}
	}
}

// WithOverlap sets the overlap between windows of a split paragraph.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithIDGenerator replaces the random chunk ID source.
func WithIDGenerator(gen func() string) Option {
	return func(c *Chunker) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		merge:    1,
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
		newID:    func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed the window
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}

	return c
}

// Chunk returns the chunks of content in reading order. Blank paragraphs are
// skipped. PageIndex and ParagraphIndex locate the first paragraph of a chunk.
func (c *Chunker) Chunk(docID string, content *domain.DocumentContent) []domain.Chunk {
	if content == nil {
		return nil
	}

	var chunks []domain.Chunk
	for _, page := range content.Pages {
		var group []string
		groupStart := 0

		flush := func() {
			if len(group) == 0 {
				return
			}
			for _, text := range c.split(strings.Join(group, "\n\n")) {
				chunks = append(chunks, domain.Chunk{
					ID:             c.newID(),
					DocumentID:     docID,
					PageIndex:      page.Index,
					ParagraphIndex: groupStart,
					Text:           text,
				})
			}
			group = group[:0]
		}

		for i, para := range page.Paragraphs {
			text := strings.TrimSpace(para.Text)
			if text == "" {
				continue
			}
			if len(group) == 0 {
				groupStart = i
			}
			group = append(group, text)
			if len(group) >= c.merge {
				flush()
			}
		}
		flush()
	}

	return chunks
}

// split cuts text into windows of at most maxChars runes that overlap by
// overlap runes. Text within the limit is returned whole.
func (c *Chunker) split(text string) []string {
	if utf8.RuneCountInString(text) <= c.maxChars {
		return []string{text}
	}

	runes := []rune(text)
	step := c.maxChars - c.overlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			windows = append(windows, w)
		}
		if end == len(runes) {
			break
		}
	}
	return windows
}
