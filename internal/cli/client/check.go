package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// CheckRequest mirrors the /check request body.
type CheckRequest struct {
	Question  string          `json:"question"`
	Drawing   json.RawMessage `json:"drawing,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

type Citation struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
	Content   string `json:"content"`
	Relevance string `json:"relevance"`
}

// CheckResult mirrors the compliance result returned by /check.
type CheckResult struct {
	Answer         string     `json:"answer"`
	IsCompliant    bool       `json:"is_compliant"`
	Citations      []Citation `json:"citations"`
	ReasoningSteps []string   `json:"reasoning_steps"`
}

// CheckCmd creates the check command.
func CheckCmd() *cobra.Command {
	var (
		drawingPath string
		sessionID   string
		showSteps   bool
	)

	cmd := &cobra.Command{
		Use:   "check <question>",
		Short: "Ask a compliance question",
		Long: `Sends a compliance question to the server, optionally with a drawing.

The drawing is a JSON array of entities, read from --drawing (use "-" for stdin),
or resolved by the server from an upload session with --session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			req, err := buildCheckRequest(args[0], drawingPath, sessionID, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), api, req, outputJSON, showSteps)
		},
	}

	cmd.Flags().StringVarP(&drawingPath, "drawing", "d", "", "Drawing JSON file (\"-\" reads stdin)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Upload session holding the drawing")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Print the reasoning trace")

	return cmd
}

func buildCheckRequest(question, drawingPath, sessionID string, stdin io.Reader) (*CheckRequest, error) {
	req := &CheckRequest{Question: question, SessionID: sessionID}
	if drawingPath == "" {
		return req, nil
	}

	var (
		data []byte
		err  error
	)
	if drawingPath == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(drawingPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("drawing %s is not valid JSON", drawingPath)
	}
	req.Drawing = data
	return req, nil
}

func runCheck(w io.Writer, api *APIClient, req *CheckRequest, outputJSON, showSteps bool) error {
	resp, err := api.Post("/check", req)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	var result CheckResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse check result: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	verdict := "NON-COMPLIANT"
	if result.IsCompliant {
		verdict = "COMPLIANT"
	}
	fmt.Fprintf(w, "Verdict: %s\n\n%s\n", verdict, result.Answer)

	if len(result.Citations) > 0 {
		fmt.Fprintf(w, "\nCitations:\n")
		for i, c := range result.Citations {
			fmt.Fprintf(w, "%d. %s, %s\n", i+1, c.Source, c.Reference)
			if c.Relevance != "" {
				fmt.Fprintf(w, "   %s\n", c.Relevance)
			}
		}
	}

	if showSteps && len(result.ReasoningSteps) > 0 {
		fmt.Fprintf(w, "\n%s\nReasoning:\n", strings.Repeat("-", 40))
		for _, step := range result.ReasoningSteps {
			fmt.Fprintf(w, "- %s\n", step)
		}
	}

	return nil
}
