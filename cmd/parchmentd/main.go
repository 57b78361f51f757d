package main

import (
	"fmt"
	"os"

	"github.com/parchment-ai/parchment/internal/cli"
	"github.com/parchment-ai/parchment/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "parchmentd",
		Short: "Parchment daemon and CLI",
		Long:  "Parchment daemon for running the API server and ingesting contract corpora",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
