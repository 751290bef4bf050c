// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	localembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/doclens/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/doclens/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// providerRetries is how often a throttled hosted-provider call is retried.
const providerRetries = 2

// InitResult contains the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Summariser       driven.Summariser // Nil when theme summaries are extractive.
	PromptStore      driven.PromptStore
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.Summariser != nil {
		r.Summariser.Close()
	}
}

// Init builds the embedding service and the optional summariser.
// Nothing is contacted; use ConfigValidator to check reachability.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	summariser, err := CreateSummariser(&settings.LLM, prompts)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	return &InitResult{
		EmbeddingService: embedder,
		Summariser:       summariser,
		PromptStore:      prompts,
	}, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLMConfig validates a summariser configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateSummariser(settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return localembed.NewEmbeddingService(localembed.Config{
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
			MaxRetries:        providerRetries,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
			MaxRetries:        providerRetries,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateSummariser creates the theme summariser based on settings.
// Returns nil if no provider is configured.
func CreateSummariser(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.Summariser, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewSummariser(ollamallm.LLMConfig{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			MaxRetries: providerRetries,
			Prompts:    prompts,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewSummariser(openaillm.LLMConfig{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			MaxRetries: providerRetries,
			Prompts:    prompts,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
