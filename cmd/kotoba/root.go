package main

import (
	"github.com/spf13/cobra"

	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kotoba",
	Short: "Japanese learning backend with LLM-powered sentence analysis",
	Long: `Kotoba analyzes Japanese text and images into structured sentence
breakdowns and maintains integrated vocabulary and sentence-structure
collections built from the accumulated parse history.

The pipeline includes:
  - Text, image, and PDF analysis via LLM structured output
  - Parse history stored in DefraDB
  - Vocabulary and structure integration with deduplication
  - Romaji backfill for integrated examples`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.kotoba/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "kotoba home directory (default: ~/.kotoba)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}
