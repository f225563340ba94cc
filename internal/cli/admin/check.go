package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
)

var (
	errInboxRequired    = errors.New("an inbox directory is required (PLANCHECK_INBOX_DIR or --dir)")
	errQuestionRequired = errors.New("a question is required")
)

// CheckCmd returns the offline check command
func CheckCmd() *cobra.Command {
	var drawingPath string

	cmd := &cobra.Command{
		Use:   "check <question>",
		Short: "Run a compliance check without the API server",
		Long: `Run one compliance check in-process and print the result as JSON.

The drawing is a JSON array of entities read from --drawing ("-" for stdin).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if args[0] == "" {
				return errQuestionRequired
			}
			drawing, err := readDrawing(drawingPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, err := NewApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Workflow.Process(logger.ContextWithLogger(ctx, log), args[0], drawing)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&drawingPath, "drawing", "d", "", "Drawing JSON file (- for stdin)")

	return cmd
}

// readDrawing returns nil when no path is given, so the check runs without
// geometry.
func readDrawing(path string, stdin io.Reader) ([]domain.DrawingEntity, error) {
	if path == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing: %w", err)
	}
	return domain.DecodeDrawing(data)
}
