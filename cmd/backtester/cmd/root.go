package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Minute-resolution historical market replay",
	Long: `Backtester replays historical sessions minute by minute, interpolating
prices between bars, and runs one or more portfolios against the replay.

It provides tools for:
  - Running backtests from YAML, JSON or TOML configuration
  - Generating and validating configuration files
  - Querying the SQLite trade journal and printing reports`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
