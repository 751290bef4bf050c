package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/connectors/filesystem"
	"github.com/custodia-labs/doclens/internal/core/domain"
)

var watchExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files dropped into a directory",
	Long: `Watches a directory and uploads every new file with an allowed extension,
exactly as "doclens upload" would. Hidden files and subdirectories are ignored.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also ingest files already in the directory")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	opts := []filesystem.Option{filesystem.WithExisting(watchExisting)}
	if svc.Settings != nil {
		opts = append(opts, filesystem.WithAllowed(svc.Settings.Ingest.IsAllowed))
	}
	watcher := filesystem.New(args[0], svc.Ingestion, opts...)

	results := make(chan domain.UploadResult, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			cmd.Print(renderUploadResults([]domain.UploadResult{r}))
		}
	}()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	err = watcher.Watch(cmd.Context(), results)
	close(results)
	<-done
	return err
}
