package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/doclens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/doclens/internal/core/domain"
)

type testServices struct {
	ingest *mockIngestionService
	query  *mockQueryService
	themes *mockThemeService
	config *file.ConfigStore
}

// setupTestServices injects mocks and resets command flags. It restores the
// previous state when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	ts := &testServices{
		ingest: newMockIngestion(),
		query:  &mockQueryService{},
		themes: &mockThemeService{},
		config: store,
	}
	settings := domain.DefaultAppSettings()
	SetServices(&Services{
		Ingestion: ts.ingest,
		Query:     ts.query,
		Themes:    ts.themes,
		Settings:  &settings,
		Config:    store,
	})

	prevConfigDir, prevDataDir := configDir, dataDir
	configDir, dataDir = t.TempDir(), t.TempDir()
	prevEnv := lookupEnv
	lookupEnv = func(string) string { return "" }

	resetFlags()
	t.Cleanup(func() {
		SetServices(nil)
		configDir, dataDir = prevConfigDir, prevDataDir
		lookupEnv = prevEnv
		resetFlags()
	})
	return ts
}

func resetFlags() {
	jsonOutput = false
	uploadPlain = false
	queryDocIDs = nil
	queryTopK = 0
	queryThemes = false
	watchExisting = false
	serveAddr = ""
	mcpHTTPAddr = ""
	mcpUploadWait = 2 * time.Minute
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
