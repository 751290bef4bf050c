// Package openai writes theme summaries with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/doclens/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/doclens/internal/adapters/driven/llm"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

var _ driven.Summariser = (*Summariser)(nil)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI summariser.
type LLMConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL may point at Azure OpenAI or any compatible endpoint.
	BaseURL string

	Model   string
	Timeout time.Duration

	// MaxRetries applies to throttled (429) and unavailable (5xx gateway) replies.
	MaxRetries int

	// Prompts supplies the theme summary template. Optional.
	Prompts driven.PromptStore
}

// Summariser writes theme summaries using the OpenAI API.
type Summariser struct {
	api     *apiclient.Client
	model   string
	prompts driven.PromptStore
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

var errNoChoices = errors.New("openai: no response choices returned")

// NewSummariser creates a new OpenAI summariser.
func NewSummariser(cfg LLMConfig) (*Summariser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
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
			Provider:   "openai",
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			Headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
			MaxRetries: cfg.MaxRetries,
		}),
		model:   cfg.Model,
		prompts: cfg.Prompts,
	}, nil
}

// Summarise condenses passages about query into at most maxLength characters.
func (s *Summariser) Summarise(ctx context.Context, query string, passages []string, maxLength int) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: llm.ThemeSummaryPrompt(s.prompts, query, passages, maxLength),
		}},
		MaxTokens:   llm.MaxTokens(maxLength),
		Temperature: llm.SummaryTemperature,
	}

	var resp chatResponse
	if err := s.api.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarise: %w", errNoChoices)
	}

	summary := llm.Clip(resp.Choices[0].Message.Content, maxLength)
	if summary == "" {
		return "", fmt.Errorf("summarise: openai returned an empty summary")
	}
	return summary, nil
}

// ModelName returns the chat model in use.
func (s *Summariser) ModelName() string {
	return s.model
}

// Ping lists models, which checks the API key without running inference.
func (s *Summariser) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models")
}

// Close releases resources.
func (s *Summariser) Close() error {
	return nil
}
