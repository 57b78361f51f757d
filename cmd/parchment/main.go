package main

import (
	"fmt"
	"os"

	"github.com/parchment-ai/parchment/internal/cli"
	"github.com/parchment-ai/parchment/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "parchment",
		Short: "Parchment CLI - legal document question answering",
		Long: `Parchment CLI asks questions about the indexed contract corpus.

Environment variables:
  PARCHMENT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.DocsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
