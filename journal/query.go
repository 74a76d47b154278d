package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/money"
)

var ErrNotFound = errors.New("not found")

const tradeColumns = `position_id, portfolio, symbol, side, size, open_price, close_price, open_time, close_time, gain, commission, reason, run_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec        TradeRecord
		openPrice  int64
		closePrice int64
		gain       int64
		commission int64
	)
	err := s.Scan(
		&rec.PositionID,
		&rec.Portfolio,
		&rec.Symbol,
		&rec.Side,
		&rec.Size,
		&openPrice,
		&closePrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&gain,
		&commission,
		&rec.Reason,
		&rec.RunID,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.OpenPrice = money.FromCents(openPrice)
	rec.ClosePrice = money.FromCents(closePrice)
	rec.Gain = money.FromCents(gain)
	rec.Commission = money.FromCents(commission)
	return rec, nil
}

func (j *SQLite) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by position ID.
func (j *SQLite) GetTrade(positionID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE position_id = ?`, positionID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", positionID, ErrNotFound)
	}
	return rec, err
}

// ListTrades returns the closed-position log of portfolio across every run
// in close order. An empty portfolio lists every portfolio.
func (j *SQLite) ListTrades(portfolio string) ([]TradeRecord, error) {
	return j.ListRunTrades("", portfolio)
}

// ListRunTrades is ListTrades limited to one run. An empty run matches all.
func (j *SQLite) ListRunTrades(run, portfolio string) ([]TradeRecord, error) {
	return j.queryTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE (? = '' OR run_id = ?) AND (? = '' OR portfolio = ?)
		ORDER BY close_time ASC, rowid ASC`, run, run, portfolio, portfolio)
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, rowid ASC`, start.UTC(), end.UTC())
}

// ListEquity returns the snapshots of portfolio across every run in time
// order.
func (j *SQLite) ListEquity(portfolio string) ([]EquitySnapshot, error) {
	return j.ListRunEquity("", portfolio)
}

// ListRunEquity is ListEquity limited to one run. An empty run matches all.
func (j *SQLite) ListRunEquity(run, portfolio string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, portfolio, start_value, cash, equity, margin, nett_gain, open_positions, closed_positions, run_id
		FROM equity
		WHERE (? = '' OR run_id = ?) AND (? = '' OR portfolio = ?)
		ORDER BY time ASC, rowid ASC`, run, run, portfolio, portfolio)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			e                                 EquitySnapshot
			start, cash, equity, margin, nett int64
		)
		if err := rows.Scan(&e.Time, &e.Portfolio, &start, &cash, &equity, &margin, &nett, &e.Open, &e.Closed, &e.RunID); err != nil {
			return nil, err
		}
		e.StartValue = money.FromCents(start)
		e.Cash = money.FromCents(cash)
		e.Equity = money.FromCents(equity)
		e.Margin = money.FromCents(margin)
		e.NettGain = money.FromCents(nett)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Portfolios lists every portfolio that has a snapshot in run, or in any run
// when run is empty.
func (j *SQLite) Portfolios(run string) ([]string, error) {
	return j.queryStrings(`
		SELECT DISTINCT portfolio FROM equity
		WHERE ? = '' OR run_id = ?
		ORDER BY portfolio`, run, run)
}

// Runs lists the recorded run ids, oldest first.
func (j *SQLite) Runs() ([]string, error) {
	return j.queryStrings(`
		SELECT run_id FROM equity
		WHERE run_id != ''
		GROUP BY run_id
		ORDER BY MIN(rowid)`)
}

// LatestRun returns the most recently recorded run id.
func (j *SQLite) LatestRun() (string, error) {
	runs, err := j.Runs()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("run: %w", ErrNotFound)
	}
	return runs[len(runs)-1], nil
}

func (j *SQLite) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
