package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display records from a SQLite trade journal.

Subcommands:
  trade   - Get details of a specific position by ID
  trades  - List closed positions, optionally for one portfolio
  day     - List positions closed on a specific day
  report  - Summarize a portfolio's run (the latest run unless --run is given)

Examples:
  backtester journal trade 01ARZ3NDEKTSV4RRFFQ69G5FAV
  backtester journal trades sma
  backtester journal day 2020-12-01
  backtester journal report sma --org
  backtester journal trades --run 01ARZ3NDEKTSV4RRFFQ69G5FAV`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <position-id>",
	Short: "Get details of a specific position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades [portfolio]",
	Short: "List closed positions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalTrades,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List positions closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalReportCmd = &cobra.Command{
	Use:   "report [portfolio]",
	Short: "Summarize the run of one or every portfolio",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalReport,
}

var (
	journalDBPath    string
	journalRunID     string
	journalLocation  string
	journalReportOrg bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./journal.db", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVar(&journalRunID, "run", "", "limit to one run id")
	journalDayCmd.Flags().StringVar(&journalLocation, "location", "America/New_York", "time zone of the day")
	journalReportCmd.Flags().BoolVar(&journalReportOrg, "org", false, "print an org-mode report")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	var portfolio string
	if len(args) == 1 {
		portfolio = args[0]
	}
	recs, err := j.ListRunTrades(journalRunID, portfolio)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	loc, err := time.LoadLocation(journalLocation)
	if err != nil {
		return fmt.Errorf("location: %w", err)
	}
	start, end, err := dayBounds(loc, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	run := journalRunID
	if run == "" {
		if run, err = j.LatestRun(); err != nil {
			return fmt.Errorf("latest run: %w", err)
		}
	}

	names := args
	if len(names) == 0 {
		if names, err = j.Portfolios(run); err != nil {
			return fmt.Errorf("list portfolios: %w", err)
		}
	}

	for _, name := range names {
		snaps, err := j.ListRunEquity(run, name)
		if err != nil {
			return fmt.Errorf("query equity: %w", err)
		}
		trades, err := j.ListRunTrades(run, name)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
		if len(snaps) == 0 && len(trades) == 0 {
			return fmt.Errorf("no journal records for portfolio %q in run %s", name, run)
		}

		r := journal.NewReport(name, snaps, trades)
		if journalReportOrg {
			err = r.WriteOrg(cmd.OutOrStdout())
		} else {
			err = r.WriteText(cmd.OutOrStdout())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return t, t.AddDate(0, 0, 1), nil
}
