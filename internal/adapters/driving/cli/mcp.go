package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/adapters/driving/mcp"
)

var (
	mcpHTTPAddr   string
	mcpUploadWait time.Duration
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose doclens to AI assistants over MCP",
	Long: `Starts an MCP server offering the query, identify_themes, upload and
document_status tools plus the doclens://documents and doclens://queue
resources.

The server speaks JSON-RPC on stdio unless --http is given, in which case
it serves streamable HTTP on that address (useful with MCP Inspector).

Register with an assistant:

  {
    "mcpServers": {
      "doclens": {"command": "/path/to/doclens", "args": ["mcp", "serve"]}
    }
  }`,
	Example: `  doclens mcp serve
  doclens mcp serve --http localhost:8090`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	mcpServeCmd.Flags().DurationVar(&mcpUploadWait, "upload-wait", 2*time.Minute,
		"longest the upload tool blocks when the caller asks it to wait")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Query:     svc.Query,
		Themes:    svc.Themes,
		Ingestion: svc.Ingestion,
	}, mcp.WithUploadWaitTimeout(mcpUploadWait))
	if err != nil {
		return err
	}

	if mcpHTTPAddr == "" {
		// stdout carries the protocol.
		return server.Run(cmd.Context())
	}
	cmd.Printf("MCP server listening on http://%s\n", mcpHTTPAddr)
	return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
}
