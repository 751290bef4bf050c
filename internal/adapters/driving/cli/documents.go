package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
)

var (
	uploadPlain bool
	jsonOutput  bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload and index documents",
	Long: `Uploads one or more files and waits until each has been extracted and indexed.

Files with unsupported extensions are reported and skipped; the rest are processed
independently, so one failing document does not affect the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var statusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show the processing status of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document (not supported)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadPlain, "plain", false, "print plain status lines instead of progress bars")
	for _, c := range []*cobra.Command{uploadCmd, statusCmd, listCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}
	rootCmd.AddCommand(uploadCmd, statusCmd, listCmd, deleteCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func readUploads(paths []string) ([]domain.FileUpload, error) {
	uploads := make([]domain.FileUpload, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, domain.FileUpload{FileName: filepath.Base(path), Content: content})
	}
	return uploads, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	uploads, err := readUploads(args)
	if err != nil {
		return err
	}

	results := svc.Ingestion.EnqueueBatch(cmd.Context(), uploads)

	var docs []domain.Document
	switch {
	case jsonOutput, uploadPlain, !isTerminal(cmd):
		docs, err = waitPlain(cmd, svc.Ingestion, results, !jsonOutput)
	default:
		cmd.Print(renderUploadResults(results))
		docs, err = waitWithProgress(cmd, svc.Ingestion, results)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, map[string]any{"uploads": results, "documents": docs})
	}

	failed := 0
	for i := range results {
		if !results[i].Accepted() {
			failed++
		}
	}
	for i := range docs {
		if docs[i].Status == domain.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// waitPlain blocks on each accepted document in turn.
func waitPlain(cmd *cobra.Command, ingest driving.IngestionService, results []domain.UploadResult, show bool) ([]domain.Document, error) {
	if show {
		cmd.Print(renderUploadResults(results))
	}
	var docs []domain.Document
	for _, r := range results {
		if !r.Accepted() {
			continue
		}
		doc, err := ingest.Wait(cmd.Context(), r.DocumentID)
		if err != nil {
			return docs, fmt.Errorf("wait for %s: %w", r.DocumentID, err)
		}
		docs = append(docs, *doc)
		if show {
			cmd.Print(renderStatus(doc))
		}
	}
	return docs, nil
}

func waitWithProgress(cmd *cobra.Command, ingest driving.IngestionService, results []domain.UploadResult) ([]domain.Document, error) {
	model := newProgressModel(cmd.Context(), ingest.Status, results)
	if len(model.items) == 0 {
		return nil, nil
	}

	final, err := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
	).Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}

	m, ok := final.(progressModel)
	if !ok {
		return nil, errors.New("progress view: unexpected model")
	}
	if m.aborted {
		// Processing continues in this process; wait quietly so it is not cut short.
		cmd.Println("Waiting for processing to finish...")
		return waitPlain(cmd, ingest, results, false)
	}
	return m.documents(), nil
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	doc, err := svc.Ingestion.Status(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, doc)
	}
	cmd.Print(renderStatus(doc))
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	docs, err := svc.Ingestion.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if jsonOutput {
		if docs == nil {
			docs = []domain.DocumentSummary{}
		}
		return printJSON(cmd, docs)
	}
	cmd.Print(renderSummaries(docs))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	if err := svc.Ingestion.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotImplemented) {
			return errors.New("document deletion not implemented")
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
