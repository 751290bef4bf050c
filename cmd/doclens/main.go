// Command doclens ingests documents and answers questions across them.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/doclens/internal/adapters/driving/cli"
)

func main() {
	// API keys and DOCLENS_* overrides may live in a local .env file.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
