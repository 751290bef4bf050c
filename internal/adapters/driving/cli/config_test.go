package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/doclens/internal/core/services"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "long key", key: "sk-1234567890abcdef", want: "sk-1...cdef"},
		{name: "exactly 8 chars", key: "12345678", want: "****"},
		{name: "short key", key: "abc", want: "****"},
		{name: "empty", key: "", want: "****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskAPIKey(tt.key))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "pdf,md", formatValue(services.KeyIngestExtensions, []string{"pdf", "md"}))
	assert.Equal(t, "pdf,md", formatValue(services.KeyIngestExtensions, []any{"pdf", "md"}))
	assert.Equal(t, "5", formatValue(services.KeyQueryTopK, int64(5)))
	assert.Equal(t, "sk-a...wxyz", formatValue(services.KeyEmbedAPIKey, "sk-abcdefghuvwxyz"))
	assert.Equal(t, "", formatValue(services.KeyLLMAPIKey, ""))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{name: "extensions", key: services.KeyIngestExtensions, raw: "pdf, md,,txt ", want: []string{"pdf", "md", "txt"}},
		{name: "integer", key: services.KeyQueryTopK, raw: "7", want: int64(7)},
		{name: "bad integer", key: services.KeyThemesMax, raw: "many", wantErr: true},
		{name: "float", key: services.KeyThemesThreshold, raw: "0.6", want: 0.6},
		{name: "bad float", key: services.KeyEmbedRate, raw: "fast", wantErr: true},
		{name: "string", key: services.KeyEmbedProvider, raw: "ollama", want: "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.key, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigSetGet(t *testing.T) {
	ts := setupTestServices(t)

	out, err := run(t, "config", "set", services.KeyQueryTopK, "7")
	require.NoError(t, err)
	assert.Contains(t, out, "query.top_k = 7")
	assert.Equal(t, 7, ts.config.GetInt(services.KeyQueryTopK))

	out, err = run(t, "config", "get", services.KeyQueryTopK)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	out, err = run(t, "config", "get", services.KeyLLMModel)
	require.NoError(t, err)
	assert.Equal(t, "(default)\n", out)
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	ts := setupTestServices(t)

	_, err := run(t, "config", "set", services.KeyIndexBackend, "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected index.backend=postgres")
	assert.Equal(t, "", ts.config.GetString(services.KeyIndexBackend))

	_, err = run(t, "config", "set", "no.such.key", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting")
}

func TestConfigGet_EnvironmentWins(t *testing.T) {
	setupTestServices(t)
	lookupEnv = func(name string) string {
		if name == "DOCLENS_EMBEDDING_API_KEY" {
			return "sk-environment-key"
		}
		return ""
	}

	out, err := run(t, "config", "get", services.KeyEmbedAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-e...-key\n", out)
}

func TestConfigList(t *testing.T) {
	ts := setupTestServices(t)
	require.NoError(t, ts.config.Set(services.KeyThemesMax, int64(3)))

	out, err := run(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "themes.max_themes")
	assert.Contains(t, out, "[config]")
	assert.Contains(t, out, "(default)")
	assert.Contains(t, out, "Local (hashing, offline)")
	assert.NotContains(t, out, "Ignored")
}

func TestConfigList_UnknownKeys(t *testing.T) {
	ts := setupTestServices(t)
	require.NoError(t, ts.config.Set("legacy.option", "x"))

	out, err := run(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ignored (not a doclens setting):")
	assert.Contains(t, out, "legacy.option")
}

func TestUnknownKeys(t *testing.T) {
	assert.Nil(t, unknownKeys(nil))
	assert.Nil(t, unknownKeys([]string{services.KeyThemesMax}))
	assert.Equal(t, []string{"old.key"}, unknownKeys([]string{services.KeyThemesMax, "old.key"}))
}

func TestConfigPath(t *testing.T) {
	ts := setupTestServices(t)

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, ts.config.Path()+"\n", out)
	assert.Equal(t, "config.toml", filepath.Base(ts.config.Path()))
}

func TestConfigCheck_LocalProvider(t *testing.T) {
	setupTestServices(t)

	out, err := run(t, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok embedding")
}
