package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

var (
	queryDocIDs []string
	queryTopK   int
	queryThemes bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve the passages most relevant to a question",
	Long: `Embeds the question and ranks indexed paragraphs by cosine similarity.

Use --doc to restrict the search to specific documents and --themes to group the
retrieved passages into cited themes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var themesCmd = &cobra.Command{
	Use:   "themes [question]",
	Short: "Group the passages relevant to a question into themes",
	Long: `Runs a query and clusters the retrieved passages into labelled themes.
Each theme carries a summary and citations back to the source paragraphs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runThemes,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, themesCmd} {
		c.Flags().StringSliceVarP(&queryDocIDs, "doc", "d", nil, "restrict to these document IDs (repeatable)")
		c.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
		c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}
	queryCmd.Flags().BoolVar(&queryThemes, "themes", false, "also identify themes")
	rootCmd.AddCommand(queryCmd, themesCmd)
}

func queryRequest(args []string) domain.QueryRequest {
	return domain.QueryRequest{
		Query:       strings.Join(args, " "),
		DocumentIDs: queryDocIDs,
		TopK:        queryTopK,
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	result, err := svc.Query.Process(cmd.Context(), queryRequest(args))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var themes []domain.Theme
	if queryThemes {
		themes, err = svc.Themes.Identify(cmd.Context(), result)
		if err != nil {
			return fmt.Errorf("theme identification failed: %w", err)
		}
	}

	if jsonOutput {
		if !queryThemes {
			return printJSON(cmd, result)
		}
		return printJSON(cmd, map[string]any{"result": result, "themes": themes})
	}

	cmd.Print(renderPassages(result))
	if queryThemes {
		cmd.Print(renderThemes(themes))
	}
	return nil
}

func runThemes(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	result, err := svc.Query.Process(cmd.Context(), queryRequest(args))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	themes, err := svc.Themes.Identify(cmd.Context(), result)
	if err != nil {
		return fmt.Errorf("theme identification failed: %w", err)
	}

	if jsonOutput {
		if themes == nil {
			themes = []domain.Theme{}
		}
		return printJSON(cmd, themes)
	}
	cmd.Print(renderThemes(themes))
	return nil
}
