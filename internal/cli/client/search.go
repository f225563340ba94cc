package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResult represents one retrieved regulation.
type SearchResult struct {
	Source      string  `json:"source"`
	Reference   string  `json:"reference"`
	ElementType string  `json:"element_type"`
	Content     string  `json:"content"`
	Matched     string  `json:"matched,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	RawHits    int            `json:"raw_hits"`
	Unresolved int            `json:"unresolved"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search regulations",
		Long:  "Retrieves the regulation passages most relevant to a query.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSearch(cmd.OutOrStdout(), api, SearchRequest{Query: args[0], K: k}, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of child hits to retrieve (server default when 0)")

	return cmd
}

func runSearch(w io.Writer, api *APIClient, req SearchRequest, outputJSON bool) error {
	resp, err := api.Post("/regulations/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Fprintln(w, "No regulations found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d regulations:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Fprintf(w, "%d. %s, %s (%.2f)\n", i+1, result.Source, result.Reference, result.Score)
		excerpt := result.Matched
		if excerpt == "" {
			excerpt = result.Content
		}
		fmt.Fprintf(w, "   %s\n", truncate(excerpt, 100))
		if i < len(searchResp.Results)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
	if searchResp.Unresolved > 0 {
		fmt.Fprintf(w, "\n%d hits skipped: parent unavailable\n", searchResp.Unresolved)
	}

	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
