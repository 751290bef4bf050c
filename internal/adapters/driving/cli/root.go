// Package cli provides the doclens command line interface.
//
// Commands reach the core through the driving ports held in Services.
// main either injects them with SetServices or lets the first command
// that needs them build the default wiring from settings.
package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "doclens",
	Short: "Ask questions across your documents",
	Long: `doclens ingests documents (PDF, scans, office files, Markdown, HTML, text),
indexes them for semantic retrieval and answers queries with ranked passages
grouped into cited themes.

Documents are processed in the background; use "doclens status" to follow
their progress, or "doclens serve" to expose the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.doclens)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for uploads and the index (default <config-dir>/data)")
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted. Services built on demand are closed before returning.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer closeServices()

	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
