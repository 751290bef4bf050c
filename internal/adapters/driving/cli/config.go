package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/adapters/driven/ai"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings live in config.toml under the config directory. Every key can be
overridden with an environment variable, e.g. embedding.api_key is read from
DOCLENS_EMBEDDING_API_KEY. A .env file in the working directory is also loaded.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every setting and where it comes from",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Stores a setting in config.toml. The value is checked against the other
settings before it is kept; lists such as ingest.allowed_extensions are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured AI providers respond",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

// Replaced in tests.
var (
	providerValidator = ai.NewConfigValidator()
	lookupEnv         = os.Getenv
)

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configPathCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// configContext returns the config store and the data directory without
// building the AI providers or the index.
func configContext() (driven.ConfigStore, Options, error) {
	servicesMu.Lock()
	injected := active
	servicesMu.Unlock()

	opts := Options{ConfigDir: configDir, DataDir: dataDir}
	if injected != nil && injected.Config != nil {
		resolved, err := opts.resolve()
		return injected.Config, resolved, err
	}
	store, opts, err := openConfig(opts)
	if err != nil {
		return nil, opts, err
	}
	return store, opts, nil
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func formatValue(key string, val any) string {
	var s string
	switch v := val.(type) {
	case []string:
		s = strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		s = strings.Join(parts, ",")
	default:
		s = fmt.Sprint(v)
	}
	if isSecret(key) && s != "" {
		return maskAPIKey(s)
	}
	return s
}

func checkKey(key string) error {
	if !slices.Contains(services.KnownKeys(), key) {
		return fmt.Errorf("unknown setting %q (see \"doclens config list\")", key)
	}
	return nil
}

// parseValue converts a command line value to the type stored in TOML.
func parseValue(key, raw string) (any, error) {
	switch key {
	case services.KeyIngestExtensions:
		var exts []string
		for _, ext := range strings.Split(raw, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		return exts, nil
	case services.KeyIndexMerge, services.KeyEmbedDimensions, services.KeyQueryTopK,
		services.KeyThemesMax, services.KeyThemesSnippetLength:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", key, err)
		}
		return n, nil
	case services.KeyEmbedRate, services.KeyThemesThreshold:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", key, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	store, opts, err := configContext()
	if err != nil {
		return err
	}
	settings, settingsErr := services.LoadSettings(store, opts.DataDir)

	cmd.Println(titleStyle.Render("Settings"))
	cmd.Println()
	for _, key := range services.KnownKeys() {
		source := ""
		val, ok := store.Get(key)
		shown := ""
		if ok {
			shown = formatValue(key, val)
			source = "config"
		}
		if env := services.EnvVar(key); lookupEnv(env) != "" {
			shown = formatValue(key, lookupEnv(env))
			source = env
		}
		if source == "" {
			cmd.Printf("  %-32s %s\n", key, mutedStyle.Render("(default)"))
			continue
		}
		cmd.Printf("  %-32s %s %s\n", key, shown, mutedStyle.Render("["+source+"]"))
	}

	if unknown := unknownKeys(store.Keys()); len(unknown) > 0 {
		cmd.Println()
		cmd.Println(warningStyle.Render("Ignored (not a doclens setting):"))
		for _, key := range unknown {
			cmd.Printf("  %s\n", key)
		}
	}

	cmd.Println()
	if settingsErr != nil {
		cmd.Printf("%s %v\n", errorStyle.Render("Invalid:"), settingsErr)
		return nil
	}
	cmd.Printf("Embedding: %s (%s)\n", settings.Embedding.Provider.Description(), settings.Embedding.Model)
	cmd.Printf("Summaries: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("Index:     %s in %s\n", settings.Index.Backend, settings.Index.DataDir)
	return nil
}

// unknownKeys returns the stored keys that no setting reads.
func unknownKeys(stored []string) []string {
	known := services.KnownKeys()
	var out []string
	for _, key := range stored {
		if !slices.Contains(known, key) {
			out = append(out, key)
		}
	}
	return out
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := checkKey(key); err != nil {
		return err
	}
	store, _, err := configContext()
	if err != nil {
		return err
	}
	if env := lookupEnv(services.EnvVar(key)); env != "" {
		cmd.Println(formatValue(key, env))
		return nil
	}
	val, ok := store.Get(key)
	if !ok {
		cmd.Println("(default)")
		return nil
	}
	cmd.Println(formatValue(key, val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := checkKey(key); err != nil {
		return err
	}
	val, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	store, opts, err := configContext()
	if err != nil {
		return err
	}

	prev, had := store.Get(key)
	if err := store.Set(key, val); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	if _, err := services.LoadSettings(store, opts.DataDir); err != nil {
		if had {
			_ = store.Set(key, prev)
		} else {
			_ = store.Set(key, "")
		}
		return fmt.Errorf("rejected %s=%s: %w", key, args[1], err)
	}

	cmd.Printf("%s = %s\n", key, formatValue(key, val))
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	store, _, err := configContext()
	if err != nil {
		return err
	}
	p, ok := store.(interface{ Path() string })
	if !ok {
		return errors.New("config store has no file")
	}
	cmd.Println(p.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	store, opts, err := configContext()
	if err != nil {
		return err
	}
	settings, err := services.LoadSettings(store, opts.DataDir)
	if err != nil {
		return err
	}

	failed := 0
	for _, check := range providerValidator.CheckAll(settings) {
		if check.OK() {
			cmd.Printf("  %s %s (%s)\n", successStyle.Render("ok"), check.Name, check.Provider.Description())
			continue
		}
		failed++
		cmd.Printf("  %s %s (%s): %v\n", errorStyle.Render("failed"), check.Name, check.Provider.Description(), check.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d provider check(s) failed", failed)
	}
	return nil
}
