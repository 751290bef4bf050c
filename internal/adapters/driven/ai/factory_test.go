package ai

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/doclens/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/doclens/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/doclens/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/doclens/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantType any
		wantErr  bool
	}{
		{name: "nil settings returns nil", settings: nil},
		{name: "unconfigured settings returns nil", settings: &domain.EmbeddingSettings{}},
		{
			name:     "local provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderLocal, Dimensions: 64},
			wantType: &localembed.EmbeddingService{},
		},
		{
			name:     "ollama provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantType: &ollamaembed.EmbeddingService{},
		},
		{
			name:     "openai provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "test-key"},
			wantType: &openaiembed.EmbeddingService{},
		},
		{
			name:     "openai without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantType == nil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.IsType(t, tt.wantType, svc)
			svc.Close()
		})
	}
}

func TestCreateEmbeddingService_LocalDimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderLocal, Dimensions: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, svc.Dimensions())
	assert.Equal(t, localembed.DefaultModel, svc.ModelName())
}

func TestCreateSummariser(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantType any
	}{
		{name: "nil settings", settings: nil},
		{name: "none provider", settings: &domain.LLMSettings{Provider: domain.AIProviderNone}},
		{
			name:     "ollama provider",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama},
			wantType: &ollamallm.Summariser{},
		},
		{
			name:     "openai provider",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantType: &openaillm.Summariser{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateSummariser(tt.settings, nil)
			require.NoError(t, err)
			if tt.wantType == nil {
				assert.Nil(t, svc)
				return
			}
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("defaults build a local embedder and no summariser", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		result, err := Init(&settings, nil)
		require.NoError(t, err)
		defer result.Close()

		assert.Equal(t, "hashing-v1", result.EmbeddingService.ModelName())
		assert.Nil(t, result.Summariser)
	})

	t.Run("unconfigured embedder", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}
		_, err := Init(&settings, nil)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestValidateEmbeddingConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderLocal}))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: srv.URL,
	}))

	srv.Close()
	err := ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestConfigValidator_CheckAll(t *testing.T) {
	v := &ConfigValidator{
		embedding: func(*domain.EmbeddingSettings) error { return nil },
		llm:       func(*domain.LLMSettings) error { return errors.New("connection refused") },
	}

	settings := domain.DefaultAppSettings()
	checks := v.CheckAll(&settings)
	require.Len(t, checks, 1)
	assert.Equal(t, "embedding", checks[0].Name)
	assert.True(t, checks[0].OK())

	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama}
	checks = v.CheckAll(&settings)
	require.Len(t, checks, 2)
	assert.Equal(t, domain.AIProviderOllama, checks[1].Provider)
	assert.False(t, checks[1].OK())
}
