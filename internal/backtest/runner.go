// Package backtest wires a configuration into a market replay: data
// providers, the price cache, the market clock, portfolios and journals.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/market/data"
	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/pricing"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

// Result is the outcome of a run, one report per portfolio in
// configuration order.
type Result struct {
	RunID   string
	Start   time.Time
	End     time.Time
	Days    int
	Ticks   int
	Cache   pricing.Stats
	Reports []journal.Report
}

// Run replays cfg. The run's journals and data providers are closed before it
// returns, and a failure to close them is returned.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) (res *Result, err error) {
	runID := id.New()
	log = log.With().Str("run", runID).Logger()

	loc, err := cfg.Simulation.LoadLocation()
	if err != nil {
		return nil, err
	}
	from, to, err := cfg.Simulation.Range(loc)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	defer func() {
		if cerr := closeAll(closers); cerr != nil {
			log.Error().Err(cerr).Msg("close data providers")
			if err == nil {
				res, err = nil, fmt.Errorf("close data providers: %w", cerr)
			}
		}
	}()

	calendars, err := openCalendar(cfg.Data, loc, &closers)
	if err != nil {
		return nil, err
	}
	prices, err := openPrices(cfg.Data, loc, &closers)
	if err != nil {
		return nil, err
	}

	cal, err := market.LoadCalendar(ctx, calendars, from, to)
	if err != nil {
		return nil, err
	}

	mode, err := pricing.ParseExtrapolation(cfg.Simulation.Extrapolation)
	if err != nil {
		return nil, err
	}
	cache := pricing.NewCache(prices,
		pricing.WithSymbols(cfg.Data.Symbols...),
		pricing.WithExtrapolation(mode),
		pricing.WithLogger(log))

	freq, err := sim.ParseFrequency(cfg.Simulation.Frequency)
	if err != nil {
		return nil, err
	}
	m, err := sim.NewMarket(cal, cache,
		sim.WithFrequency(freq),
		sim.WithLogger(log),
		sim.WithCommissionRate(cfg.Simulation.CommissionRate))
	if err != nil {
		return nil, err
	}

	mem := journal.NewMemory()
	out, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, err
	}
	j := journal.Run{ID: runID, Journal: journal.Multi{mem, out}}

	for _, pc := range cfg.Portfolios {
		hooks, err := strategies.Build(pc.Strategy, cfg.StrategyParams(pc))
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("portfolio %q: %w", pc.Name, err)
		}
		start, err := money.FromFloatE(pc.StartValue)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("portfolio %q: %w", pc.Name, err)
		}
		opts := append(hooks.Options(),
			portfolio.WithJournal(j),
			portfolio.WithSnapshotEvery(pc.SnapshotEvery))
		if _, err := m.RegisterPortfolio(pc.Name, start, opts...); err != nil {
			j.Close()
			return nil, err
		}
	}

	log.Info().
		Int("portfolios", len(cfg.Portfolios)).
		Strs("symbols", cache.Symbols()).
		Msg("backtest starting")

	runErr := m.Run(ctx)
	if err := j.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close journal: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	res = &Result{
		RunID: runID,
		Start: cal.First().Open,
		End:   m.Now(),
		Days:  m.Day(),
		Ticks: m.TotalTicks(),
		Cache: m.CacheStats(),
	}
	for _, p := range m.Portfolios() {
		res.Reports = append(res.Reports, journal.NewReport(p.Name(), mem.Equity(p.Name()), mem.Trades(p.Name())))
	}
	return res, nil
}

// closeAll closes every closer and joins their errors.
func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openCalendar(cfg config.DataConfig, loc *time.Location, closers *[]io.Closer) (market.CalendarProvider, error) {
	switch cfg.Calendar {
	case "csv":
		sessions, err := data.LoadCalendarCSV(cfg.CalendarFile, loc)
		if err != nil {
			return nil, fmt.Errorf("load calendar: %w", err)
		}
		mem := data.NewMemory()
		mem.AddSessions(sessions...)
		return mem, nil
	case "sqlite":
		db, err := data.NewSQLite(cfg.CalendarFile, loc)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, db)
		return db, nil
	}

	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h] = true
	}
	return &data.WeekdayCalendar{
		Location:  loc,
		OpenHour:  9,
		OpenMin:   30,
		CloseHour: 16,
		Holidays:  holidays,
	}, nil
}

func openPrices(cfg config.DataConfig, loc *time.Location, closers *[]io.Closer) (market.PriceProvider, error) {
	if cfg.Prices == "sqlite" {
		db, err := data.NewSQLite(cfg.PricesFile, loc)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, db)
		return db, nil
	}
	mem := data.NewMemory()
	if err := data.LoadBarsCSV(cfg.PricesFile, loc, mem); err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return mem, nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	}
	return journal.Discard{}, nil
}
