// Package journal records closed positions and ledger snapshots produced by
// a simulation run.
package journal

import (
	"time"

	"github.com/rustyeddy/backtester/money"
)

// TradeRecord is one entry of a portfolio's closed-position log.
type TradeRecord struct {
	RunID      string
	PositionID string
	Portfolio  string
	Symbol     string
	Side       string
	Size       float64
	OpenPrice  money.Money
	ClosePrice money.Money
	OpenTime   time.Time
	CloseTime  time.Time
	Gain       money.Money
	Commission money.Money
	Reason     string
}

// EquitySnapshot is a portfolio ledger at one instant.
type EquitySnapshot struct {
	RunID      string
	Time       time.Time
	Portfolio  string
	StartValue money.Money
	Cash       money.Money
	Equity     money.Money
	Margin     money.Money
	NettGain   money.Money
	Open       int
	Closed     int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Multi fans every record out to each journal in order, stopping at the
// first error.
type Multi []Journal

func (m Multi) RecordTrade(t TradeRecord) error {
	for _, j := range m {
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) RecordEquity(e EquitySnapshot) error {
	for _, j := range m {
		if err := j.RecordEquity(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every journal and returns the first error seen.
func (m Multi) Close() error {
	var first error
	for _, j := range m {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run stamps every record with the id of the run that produced it, so runs
// sharing one store stay apart.
type Run struct {
	ID string
	Journal
}

func (r Run) RecordTrade(t TradeRecord) error {
	t.RunID = r.ID
	return r.Journal.RecordTrade(t)
}

func (r Run) RecordEquity(e EquitySnapshot) error {
	e.RunID = r.ID
	return r.Journal.RecordEquity(e)
}

// Discard drops everything.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error     { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) Close() error                      { return nil }
