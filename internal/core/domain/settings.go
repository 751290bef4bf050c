package domain

import (
	"slices"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or theme summaries.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in hashing embedder. It needs no network.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderNone disables an optional provider.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderNone:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (hashing, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderNone:
		return "Disabled"
	default:
		return unknownDescription
	}
}

// IndexBackend selects the index store implementation.
type IndexBackend string

// Available index backends.
const (
	IndexBackendMemory IndexBackend = "memory"
	IndexBackendSQLite IndexBackend = "sqlite"
)

// IngestSettings controls upload validation and staging.
type IngestSettings struct {
	// AllowedExtensions are lower-case extensions without the dot.
	AllowedExtensions []string `validate:"required,min=1,dive,required,excludes=."`

	// UploadDir holds files waiting to be processed.
	UploadDir string `validate:"required"`

	// ProcessedDir receives files once processing has finished, successfully or not.
	ProcessedDir string `validate:"required"`

	// TaskTimeout bounds extraction and indexing of one document. Zero means no bound.
	TaskTimeout time.Duration `validate:"gte=0"`
}

// IsAllowed reports whether ext (lower-case, no dot) may be uploaded.
func (s IngestSettings) IsAllowed(ext string) bool {
	return ext != "" && slices.Contains(s.AllowedExtensions, ext)
}

// IndexSettings controls the index store.
type IndexSettings struct {
	Backend IndexBackend `validate:"oneof=memory sqlite"`

	// DataDir holds the sqlite database.
	DataDir string

	// MergeParagraphs is the number of adjacent paragraphs merged into one chunk.
	MergeParagraphs int `validate:"gte=1,lte=20"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider `validate:"oneof=local ollama openai"`

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int `validate:"gte=0"`

	// RequestsPerSecond limits calls to remote providers. Zero disables limiting.
	RequestsPerSecond float64 `validate:"gte=0"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderNone {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds the optional theme summariser configuration.
type LLMSettings struct {
	Provider AIProvider `validate:"oneof=none ollama openai"`
	Model    string
	BaseURL  string `validate:"omitempty,url"`
	APIKey   string
}

// IsConfigured returns true if an LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderNone || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// QuerySettings controls retrieval.
type QuerySettings struct {
	TopK int `validate:"gte=1,lte=1000"`
}

// ThemeSettings controls passage clustering.
type ThemeSettings struct {
	// SimilarityThreshold is the minimum cosine similarity to join a theme.
	SimilarityThreshold float64 `validate:"gte=0,lte=1"`

	// MaxThemes caps the number of themes returned.
	MaxThemes int `validate:"gte=1,lte=50"`

	// SnippetLength is the maximum citation snippet length in runes.
	SnippetLength int `validate:"gte=20"`
}

// ServerSettings controls the HTTP API.
type ServerSettings struct {
	Addr string `validate:"required,hostname_port"`
}

// AppSettings holds all application settings.
type AppSettings struct {
	Ingest    IngestSettings
	Index     IndexSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Query     QuerySettings
	Themes    ThemeSettings
	Server    ServerSettings
}

// DefaultAllowedExtensions returns the extensions accepted out of the box.
func DefaultAllowedExtensions() []string {
	return []string{"pdf", "png", "jpg", "jpeg", "tiff", "txt", "md", "html", "docx", "doc", "odt", "rtf"}
}

// DefaultAppSettings returns settings with sensible defaults.
// Directories are left empty; callers resolve them relative to the data home.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Ingest: IngestSettings{
			AllowedExtensions: DefaultAllowedExtensions(),
		},
		Index: IndexSettings{
			Backend:         IndexBackendSQLite,
			MergeParagraphs: 1,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderLocal,
		},
		LLM: LLMSettings{
			Provider: AIProviderNone,
		},
		Query: QuerySettings{
			TopK: 10,
		},
		Themes: ThemeSettings{
			SimilarityThreshold: 0.75,
			MaxThemes:           5,
			SnippetLength:       200,
		},
		Server: ServerSettings{
			Addr: "localhost:8080",
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing-v1",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
