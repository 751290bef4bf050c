package driven

import "context"

// EmbeddingService maps text onto fixed-size vectors. Passages and queries
// must go through the same model: the index records ModelName and
// Dimensions with every chunk and rejects queries embedded differently.
//
// Adapters: local (hashing, offline), openai and ollama.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping checks the backing service without embedding anything.
	Ping(ctx context.Context) error
	Close() error
}

// Summariser condenses the passages of one theme. It is optional; without
// one, theme summaries are assembled from the passages themselves.
type Summariser interface {
	// Summarise answers query from passages in at most maxLength characters.
	Summarise(ctx context.Context, query string, passages []string, maxLength int) (string, error)

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// PromptThemeSummary is the summariser prompt. Its template receives the
// query (%s), the maximum length (%d) and the numbered passages (%s).
const PromptThemeSummary = "theme_summary"

// PromptStore serves prompt templates the user may edit.
type PromptStore interface {
	Load(name string) (string, error)
}
