package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/doclens/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves upload, status, listing, query and theme endpoints over HTTP.
The address defaults to the server.addr setting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Ingestion: svc.Ingestion,
		Query:     svc.Query,
		Themes:    svc.Themes,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" && svc.Settings != nil {
		addr = svc.Settings.Server.Addr
	}
	if addr == "" {
		addr = "localhost:8080"
	}

	cmd.Printf("Serving HTTP API on http://%s\n", addr)
	return server.Run(cmd.Context(), addr)
}
