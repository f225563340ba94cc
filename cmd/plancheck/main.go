package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/plancheck/internal/cli"
	"github.com/cloo-solutions/plancheck/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "plancheck",
		Short: "Plancheck CLI - planning compliance checks for CAD drawings",
		Long: `Plancheck CLI asks a plancheck server whether a drawing complies with
the ingested planning regulations.

Environment variables:
  PLANCHECK_API_KEY   API key for authentication (when the server requires one)
  PLANCHECK_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.CheckCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
