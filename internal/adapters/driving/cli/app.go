package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/doclens/internal/adapters/driven/ai"
	"github.com/custodia-labs/doclens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/doclens/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/doclens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/doclens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/doclens/internal/chunker"
	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/services"
	"github.com/custodia-labs/doclens/internal/extractors"
	"github.com/custodia-labs/doclens/internal/extractors/docx"
	"github.com/custodia-labs/doclens/internal/extractors/html"
	"github.com/custodia-labs/doclens/internal/extractors/image"
	"github.com/custodia-labs/doclens/internal/extractors/markdown"
	"github.com/custodia-labs/doclens/internal/extractors/office"
	"github.com/custodia-labs/doclens/internal/extractors/pdf"
	"github.com/custodia-labs/doclens/internal/extractors/plaintext"
	"github.com/custodia-labs/doclens/internal/logger"
)

// Options locates configuration and data on disk.
type Options struct {
	// ConfigDir holds config.toml and prompts/. Defaults to ~/.doclens.
	ConfigDir string

	// DataDir is the default root for uploads, processed files and the
	// index. Defaults to <ConfigDir>/data.
	DataDir string
}

func (o Options) resolve() (Options, error) {
	if o.ConfigDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return o, err
		}
		o.ConfigDir = dir
	}
	if o.DataDir == "" {
		o.DataDir = filepath.Join(o.ConfigDir, "data")
	}
	return o, nil
}

// DefaultExtractors returns a registry with every built-in extractor.
func DefaultExtractors() *extractors.Registry {
	runner := extractors.ExecRunner{}
	return extractors.NewRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		office.New(),
		pdf.New(runner),
		image.New(runner, ""),
	)
}

// openConfig opens the config store for opts without building any service.
func openConfig(opts Options) (*file.ConfigStore, Options, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, opts, err
	}
	store, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, opts, fmt.Errorf("open config: %w", err)
	}
	return store, opts, nil
}

// NewServices builds the default wiring: settings from config.toml and the
// environment, the configured AI providers, the index backend, file staging
// and the built-in extractors.
func NewServices(opts Options) (*Services, error) {
	configStore, opts, err := openConfig(opts)
	if err != nil {
		return nil, err
	}

	settings, err := services.LoadSettings(configStore, opts.DataDir)
	if err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(opts.ConfigDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	aiServices, err := ai.Init(settings, prompts)
	if err != nil {
		return nil, err
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	closers = append(closers, aiServices.Close)

	c := chunker.New(chunker.WithMergeParagraphs(settings.Index.MergeParagraphs))

	var (
		index   driven.IndexStore
		journal driven.StatusJournal
	)
	switch settings.Index.Backend {
	case domain.IndexBackendMemory:
		index = memory.NewIndexStore(aiServices.EmbeddingService, c)
	default:
		store, err := sqlite.NewStore(settings.Index.DataDir)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open index: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		if v, err := store.SchemaVersion(context.Background()); err == nil {
			logger.Debug("index: %s (schema v%d)", store.Path(), v)
		}
		index = store.IndexStore(aiServices.EmbeddingService, c)
		journal = store.StatusJournal()
	}
	closers = append(closers, func() { _ = index.Close() })

	stager, err := files.NewStager(settings.Ingest.UploadDir, settings.Ingest.ProcessedDir)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open staging: %w", err)
	}

	var orchOpts []services.OrchestratorOption
	if journal != nil {
		orchOpts = append(orchOpts, services.WithStatusJournal(journal))
	}
	orchestrator := services.NewOrchestrator(DefaultExtractors(), index, stager, settings.Ingest, orchOpts...)
	// Runs first on close: in-flight tasks finish before the index goes away.
	closers = append(closers, orchestrator.Close)

	logger.Debug("services ready: index=%s embedding=%s/%s llm=%s",
		settings.Index.Backend, settings.Embedding.Provider, aiServices.EmbeddingService.ModelName(), settings.LLM.Provider)

	return &Services{
		Ingestion: orchestrator,
		Query:     services.NewQueryProcessor(aiServices.EmbeddingService, index, settings.Query.TopK),
		Themes:    services.NewThemeDetector(aiServices.EmbeddingService, aiServices.Summariser, settings.Themes),
		Settings:  settings,
		Config:    configStore,
		Close:     closeAll,
	}, nil
}
