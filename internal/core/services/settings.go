package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyIngestExtensions    = "ingest.allowed_extensions"
	KeyIngestUploadDir     = "ingest.upload_dir"
	KeyIngestProcessedDir  = "ingest.processed_dir"
	KeyIngestTaskTimeout   = "ingest.task_timeout"
	KeyIndexBackend        = "index.backend"
	KeyIndexDataDir        = "index.data_dir"
	KeyIndexMerge          = "index.merge_paragraphs"
	KeyEmbedProvider       = "embedding.provider"
	KeyEmbedModel          = "embedding.model"
	KeyEmbedBaseURL        = "embedding.base_url"
	KeyEmbedAPIKey         = "embedding.api_key"
	KeyEmbedDimensions     = "embedding.dimensions"
	KeyEmbedRate           = "embedding.requests_per_second"
	KeyLLMProvider         = "llm.provider"
	KeyLLMModel            = "llm.model"
	KeyLLMBaseURL          = "llm.base_url"
	KeyLLMAPIKey           = "llm.api_key"
	KeyQueryTopK           = "query.top_k"
	KeyThemesThreshold     = "themes.similarity_threshold"
	KeyThemesMax           = "themes.max_themes"
	KeyThemesSnippetLength = "themes.snippet_length"
	KeyServerAddr          = "server.addr"
)

// KnownKeys lists every settings key, in display order.
func KnownKeys() []string {
	return []string{
		KeyIngestExtensions, KeyIngestUploadDir, KeyIngestProcessedDir, KeyIngestTaskTimeout,
		KeyIndexBackend, KeyIndexDataDir, KeyIndexMerge,
		KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey, KeyEmbedDimensions, KeyEmbedRate,
		KeyLLMProvider, KeyLLMModel, KeyLLMBaseURL, KeyLLMAPIKey,
		KeyQueryTopK,
		KeyThemesThreshold, KeyThemesMax, KeyThemesSnippetLength,
		KeyServerAddr,
	}
}

// EnvVar returns the environment variable that overrides key,
// e.g. "embedding.api_key" -> "DOCLENS_EMBEDDING_API_KEY".
func EnvVar(key string) string {
	return "DOCLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// openAIKeyEnv is consulted for OpenAI providers when no key is configured.
//
//nolint:gosec // G101: environment variable name, not a credential.
const openAIKeyEnv = "OPENAI_API_KEY"

// SettingsService assembles application settings from the config store and
// the environment. Environment variables take precedence over the file.
type SettingsService struct {
	configStore driven.ConfigStore
	dataHome    string
	getenv      func(string) string
	validate    *validator.Validate
}

// NewSettingsService creates a settings service. Relative defaults for the
// upload, processed and index directories live under dataHome.
func NewSettingsService(configStore driven.ConfigStore, dataHome string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataHome:    dataHome,
		getenv:      os.Getenv,
		validate:    validator.New(),
	}
}

// LoadSettings reads and validates settings in one call.
func LoadSettings(configStore driven.ConfigStore, dataHome string) (*domain.AppSettings, error) {
	return NewSettingsService(configStore, dataHome).Get()
}

// Get returns the current settings with defaults applied. Invalid values are
// reported as domain.ErrInvalidInput.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	timeout, err := s.getDuration(KeyIngestTaskTimeout, defaults.Ingest.TaskTimeout)
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Ingest: domain.IngestSettings{
			AllowedExtensions: s.getExtensions(defaults.Ingest.AllowedExtensions),
			UploadDir:         s.getString(KeyIngestUploadDir, filepath.Join(s.dataHome, "uploads")),
			ProcessedDir:      s.getString(KeyIngestProcessedDir, filepath.Join(s.dataHome, "processed")),
			TaskTimeout:       timeout,
		},
		Index: domain.IndexSettings{
			Backend:         domain.IndexBackend(s.getString(KeyIndexBackend, string(defaults.Index.Backend))),
			DataDir:         s.getString(KeyIndexDataDir, s.dataHome),
			MergeParagraphs: s.getInt(KeyIndexMerge, defaults.Index.MergeParagraphs),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.getString(KeyEmbedBaseURL, ""),
			APIKey:            s.getString(KeyEmbedAPIKey, ""),
			Dimensions:        s.getInt(KeyEmbedDimensions, 0),
			RequestsPerSecond: s.getFloat(KeyEmbedRate, 0),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(KeyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.getString(KeyLLMBaseURL, ""),
			APIKey:   s.getString(KeyLLMAPIKey, ""),
		},
		Query: domain.QuerySettings{
			TopK: s.getInt(KeyQueryTopK, defaults.Query.TopK),
		},
		Themes: domain.ThemeSettings{
			SimilarityThreshold: s.getFloat(KeyThemesThreshold, defaults.Themes.SimilarityThreshold),
			MaxThemes:           s.getInt(KeyThemesMax, defaults.Themes.MaxThemes),
			SnippetLength:       s.getInt(KeyThemesSnippetLength, defaults.Themes.SnippetLength),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(KeyServerAddr, defaults.Server.Addr),
		},
	}

	settings.Embedding.Model = s.getString(KeyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(KeyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.getenv(openAIKeyEnv)
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.getenv(openAIKeyEnv)
	}

	if err := s.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings against their constraints.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: settings: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: settings: %w", domain.ErrInvalidInput, err)
	}
	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		return fmt.Errorf("%w: settings: API key required for embedding provider %s",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	return nil
}

// Helper methods for reading config with defaults.

// raw returns the environment override for key, if set.
func (s *SettingsService) raw(key string) (string, bool) {
	if v := s.getenv(EnvVar(key)); v != "" {
		return v, true
	}
	return "", false
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.raw(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.raw(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if val, exists := s.configStore.Get(key); !exists || val == "" {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	return domain.AIProvider(s.getString(key, string(defaultVal)))
}

// getDuration accepts a Go duration string ("90s", "5m") or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, ok := s.raw(key)
	if !ok {
		if n := s.configStore.GetInt(key); n > 0 {
			return time.Duration(n) * time.Second, nil
		}
		val = s.configStore.GetString(key)
	}
	if val == "" {
		return defaultVal, nil
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

// getExtensions reads the allowed extension list, normalising case and dots.
func (s *SettingsService) getExtensions(defaultVal []string) []string {
	var list []string
	if v, ok := s.raw(KeyIngestExtensions); ok {
		list = strings.Split(v, ",")
	} else {
		list = s.configStore.GetStringSlice(KeyIngestExtensions)
	}
	if len(list) == 0 {
		return defaultVal
	}

	out := make([]string, 0, len(list))
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
