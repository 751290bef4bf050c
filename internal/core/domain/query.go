package domain

// QueryRequest is a free-text query optionally restricted to a set of documents.
type QueryRequest struct {
	Query       string   `json:"query" validate:"required"`
	DocumentIDs []string `json:"doc_ids,omitempty"`

	// TopK overrides the configured number of passages. Zero uses the default.
	TopK int `json:"top_k,omitempty" validate:"gte=0,lte=1000"`
}

// RetrievedPassage is a chunk ranked against a query.
type RetrievedPassage struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"doc_id"`
	FileName       string  `json:"file_name,omitempty"`
	PageIndex      int     `json:"page"`
	ParagraphIndex int     `json:"paragraph"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`

	// Embedding is carried so themes can be derived without re-embedding.
	Embedding []float32 `json:"embedding,omitempty"`
}

// QueryResult holds ranked passages together with the query that produced them.
type QueryResult struct {
	Query       string             `json:"query"`
	DocumentIDs []string           `json:"doc_ids,omitempty"`
	Passages    []RetrievedPassage `json:"passages"`
}

// IsEmpty returns true if no passages were retrieved.
func (r *QueryResult) IsEmpty() bool {
	return r == nil || len(r.Passages) == 0
}

// Citation points from a theme back to the paragraph that supports it.
type Citation struct {
	DocumentID     string `json:"doc_id"`
	FileName       string `json:"file_name,omitempty"`
	PageIndex      int    `json:"page"`
	ParagraphIndex int    `json:"paragraph"`
	Snippet        string `json:"snippet"`
	ChunkID        string `json:"chunk_id"`
}

// Theme is a labelled cluster of passages.
// Every citation refers to a passage that was part of the input.
type Theme struct {
	Label     string     `json:"label"`
	Summary   string     `json:"summary,omitempty"`
	Citations []Citation `json:"citations"`
}

// DocumentIDs returns the distinct documents cited by the theme, in citation order.
func (t Theme) DocumentIDs() []string {
	seen := make(map[string]bool, len(t.Citations))
	ids := make([]string, 0, len(t.Citations))
	for _, c := range t.Citations {
		if seen[c.DocumentID] {
			continue
		}
		seen[c.DocumentID] = true
		ids = append(ids, c.DocumentID)
	}
	return ids
}
