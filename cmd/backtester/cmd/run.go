package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/internal/backtest"
	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Replay the configured sessions and run every portfolio against them.

Trades and ledger snapshots go to the configured journal; a summary of each
portfolio is printed when the replay ends.

Example:
  backtester run -f backtest.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runLogLevel   string
	runOrgReport  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML, JSON or TOML) (required)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "override log.level from the config")
	runCmd.Flags().StringVar(&runOrgReport, "org", "", "also write an org-mode report to this file")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runLogLevel != "" {
		cfg.Log.Level = runLogLevel
	}

	log, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close log file: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := backtest.Run(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("backtest failed")
		return err
	}

	if err := backtest.PrintResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	if runOrgReport != "" {
		if err := writeOrgReport(runOrgReport, res.Reports); err != nil {
			return err
		}
	}
	return nil
}

func writeOrgReport(path string, reports []journal.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create org report: %w", err)
	}
	for _, r := range reports {
		if err := r.WriteOrg(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write org report: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close org report: %w", err)
	}
	return nil
}
