package main

import (
	"github.com/spf13/cobra"

	"github.com/kotoba-app/kotoba/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Kotoba server via HTTP.

These commands require a running server (kotoba serve).
Use --server to specify a custom server URL.

Examples:
  kotoba api health                              # Check server health
  kotoba api analyze "こんにちは"                 # Analyze a sentence
  kotoba api history list                        # List parse history
  kotoba api integrate vocabulary --action get_stats`,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Parse history commands",
}

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Vocabulary and structure integration commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Analysis at top level of api
	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))

	// History as subcommand group
	for _, ep := range endpoints.HistoryCommands() {
		historyCmd.AddCommand(ep.Command(getServerURL))
	}

	// Integration as subcommand group
	for _, ep := range endpoints.IntegrateCommands() {
		integrateCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(historyCmd)
	apiCmd.AddCommand(integrateCmd)
	rootCmd.AddCommand(apiCmd)
}
