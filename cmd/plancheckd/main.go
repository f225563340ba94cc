package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/plancheck/internal/cli"
	"github.com/cloo-solutions/plancheck/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plancheckd",
		Short: "Plancheck daemon and admin CLI",
		Long:  "Plancheck daemon for running the compliance API, ingesting regulations and managing API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.WatchCmd())
	rootCmd.AddCommand(admin.CheckCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.KeygenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
