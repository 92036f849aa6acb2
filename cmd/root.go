package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podbrief/podbrief-api/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podbrief-api",
	Short: "PodBrief transcript and summary API server",
	Long: `PodBrief API - episode transcript and AI summary generation service

Given an episode identifier the service produces a time-coded transcript
via an external speech-to-text processor and streams an AI-generated
summary back to the caller, persisting both for later reads.

Features:
  • Asynchronous transcript generation with polling and hard timeouts
  • Minute-bucketed transcript normalization
  • Streamed summaries with per-session character gating
  • Idempotent upsert persistence keyed on (episode, language)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)
}

// loadConfig initializes configuration for commands that need it.
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
