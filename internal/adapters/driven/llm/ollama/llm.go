// Package ollama writes theme summaries with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/doclens/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/doclens/internal/adapters/driven/llm"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

var _ driven.Summariser = (*Summariser)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama summariser.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// MaxRetries applies while the server is busy loading the model (503).
	MaxRetries int

	// Prompts supplies the theme summary template. Optional.
	Prompts driven.PromptStore
}

// Summariser writes theme summaries using Ollama's /api/generate.
type Summariser struct {
	api     *apiclient.Client
	model   string
	prompts driven.PromptStore
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options *generateParams `json:"options,omitempty"`
}

type generateParams struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewSummariser creates a new Ollama summariser.
func NewSummariser(cfg LLMConfig) *Summariser {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &Summariser{
		api: apiclient.New(apiclient.Config{
			Provider:   "ollama",
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		model:   cfg.Model,
		prompts: cfg.Prompts,
	}
}

// Summarise condenses passages about query into at most maxLength characters.
func (s *Summariser) Summarise(ctx context.Context, query string, passages []string, maxLength int) (string, error) {
	req := generateRequest{
		Model:  s.model,
		Prompt: llm.ThemeSummaryPrompt(s.prompts, query, passages, maxLength),
		Options: &generateParams{
			NumPredict:  llm.MaxTokens(maxLength),
			Temperature: llm.SummaryTemperature,
		},
	}

	var resp generateResponse
	if err := s.api.PostJSON(ctx, "/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}

	summary := llm.Clip(resp.Response, maxLength)
	if summary == "" {
		return "", fmt.Errorf("summarise: ollama returned an empty summary")
	}
	return summary, nil
}

// ModelName returns the generation model in use.
func (s *Summariser) ModelName() string {
	return s.model
}

// Ping lists local models, which checks connectivity without loading one.
func (s *Summariser) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags")
}

// Close releases resources.
func (s *Summariser) Close() error {
	return nil
}
