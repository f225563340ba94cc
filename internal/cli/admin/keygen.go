package admin

import (
	"fmt"
	"io"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/plancheck/internal/service"
)

var keyNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// KeygenCmd returns the keygen command
func KeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <name>",
		Short: "Generate an API key",
		Long: `Generate a new API key and print it as a PLANCHECK_API_KEYS entry.

Add the printed name:token pair to PLANCHECK_API_KEYS (comma separated)
and hand the token to the client. The token is not stored anywhere.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd.OutOrStdout(), args[0])
		},
	}
}

func runKeygen(w io.Writer, name string) error {
	if !keyNamePattern.MatchString(name) {
		return fmt.Errorf("invalid key name %q", name)
	}
	token, err := service.GenerateAPIToken()
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}
	fmt.Fprintf(w, "%s:%s\n", name, token)
	return nil
}
