package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Store, clear and inspect the credentials used by the plancheck client",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with API key",
		Long:  "Store API key and URL in global config (~/.config/plancheck/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (pck_...)")
	cmd.Flags().StringVar(&apiURL, "url", "http://localhost:8080", "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove stored credentials from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout()
		},
	}

	return cmd
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Display the current credential source, then check that the plancheck
server answers on /health and accepts the API key on /whoami.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			return runAuthStatus(cmd.OutOrStdout(), flagKey, flagURL, outputJSON)
		},
	}

	return cmd
}

func runAuthLogin(apiKey, apiURL string) error {
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
	}

	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: pck_ + 64 hex characters)")
	}

	config := &GlobalConfig{
		APIKey: apiKey,
		APIURL: apiURL,
	}

	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Println("Successfully logged in")
	return nil
}

func runAuthLogout() error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Println("Successfully logged out")
	return nil
}

// ServerStatus is what the server reported for the configured credentials.
type ServerStatus struct {
	Reachable    bool   `json:"reachable"`
	KeyAccepted  bool   `json:"key_accepted"`
	AuthRequired bool   `json:"auth_required"`
	Client       string `json:"client,omitempty"`
	Error        string `json:"error,omitempty"`
}

type whoAmI struct {
	Client       string `json:"client"`
	AuthRequired bool   `json:"auth_required"`
}

// checkServer calls /health, then /whoami with the client's key. A server
// running without authentication accepts any key.
func checkServer(api *APIClient) ServerStatus {
	var status ServerStatus
	if _, err := api.Get("/health"); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Reachable = true

	resp, err := api.Get("/whoami")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			status.AuthRequired = true
		}
		status.Error = err.Error()
		return status
	}

	var who whoAmI
	if err := json.Unmarshal(resp.Data, &who); err != nil {
		status.Error = fmt.Sprintf("failed to parse whoami response: %v", err)
		return status
	}
	status.KeyAccepted = true
	status.AuthRequired = who.AuthRequired
	status.Client = who.Client
	return status
}

func runAuthStatus(w io.Writer, flagKey, flagURL string, outputJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource(flagKey, flagURL)
	target := apiURL
	if target == "" {
		target = firstNonEmpty(flagURL, os.Getenv(envAPIURL), defaultAPIURL)
	}
	server := checkServer(NewAPIClientWithConfig(apiKey, target))

	if outputJSON {
		return outputStatusJSON(w, source, apiKey, target, server)
	}
	return outputStatusText(w, source, apiKey, target, server)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func outputStatusJSON(w io.Writer, source CredentialSource, apiKey, apiURL string, server ServerStatus) error {
	status := map[string]interface{}{
		"authenticated": source != SourceNone,
		"source":        string(source),
		"api_url":       apiURL,
		"server":        server,
	}

	if source != SourceNone {
		status["api_key"] = maskAPIKey(apiKey)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

func outputStatusText(w io.Writer, source CredentialSource, apiKey, apiURL string, server ServerStatus) error {
	if source == SourceNone {
		fmt.Fprintln(w, "Not authenticated")
		fmt.Fprintln(w, "Run 'plancheck auth login' to authenticate")
	} else {
		fmt.Fprintf(w, "Authenticated: yes\n")
		fmt.Fprintf(w, "Source: %s\n", source)
		fmt.Fprintf(w, "API Key: %s\n", maskAPIKey(apiKey))
	}
	fmt.Fprintf(w, "API URL: %s\n", apiURL)

	switch {
	case !server.Reachable:
		fmt.Fprintf(w, "Server: unreachable (%s)\n", server.Error)
	case !server.KeyAccepted:
		fmt.Fprintf(w, "Server: reachable, key rejected (%s)\n", server.Error)
	case !server.AuthRequired:
		fmt.Fprintln(w, "Server: reachable, authentication disabled")
	default:
		fmt.Fprintf(w, "Server: reachable, key accepted as %q\n", server.Client)
	}

	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
