package ai

import (
	"github.com/custodia-labs/doclens/internal/core/domain"
)

// ConfigValidator checks that configured AI providers are reachable.
type ConfigValidator struct {
	embedding func(*domain.EmbeddingSettings) error
	llm       func(*domain.LLMSettings) error
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		embedding: ValidateEmbeddingConfig,
		llm:       ValidateLLMConfig,
	}
}

// ProviderCheck is the outcome of one provider check.
type ProviderCheck struct {
	Name     string
	Provider domain.AIProvider
	Err      error
}

// OK returns true if the provider responded or needs no check.
func (c ProviderCheck) OK() bool {
	return c.Err == nil
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return v.embedding(config)
}

// ValidateLLM validates a summariser configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return v.llm(config)
}

// CheckAll pings the embedding provider and, when configured, the summariser.
func (v *ConfigValidator) CheckAll(settings *domain.AppSettings) []ProviderCheck {
	checks := []ProviderCheck{{
		Name:     "embedding",
		Provider: settings.Embedding.Provider,
		Err:      v.ValidateEmbedding(&settings.Embedding),
	}}
	if settings.LLM.IsConfigured() {
		checks = append(checks, ProviderCheck{
			Name:     "llm",
			Provider: settings.LLM.Provider,
			Err:      v.ValidateLLM(&settings.LLM),
		})
	}
	return checks
}
