package journal

import "sync"

// Memory keeps records in slices. Tests and the end-of-run report read them
// back.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Trades returns the trades of portfolio, or all trades when portfolio is
// empty.
func (m *Memory) Trades(portfolio string) []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if portfolio == "" || t.Portfolio == portfolio {
			out = append(out, t)
		}
	}
	return out
}

func (m *Memory) Equity(portfolio string) []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EquitySnapshot
	for _, e := range m.equity {
		if portfolio == "" || e.Portfolio == portfolio {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the latest snapshot of portfolio.
func (m *Memory) Last(portfolio string) (EquitySnapshot, bool) {
	eq := m.Equity(portfolio)
	if len(eq) == 0 {
		return EquitySnapshot{}, false
	}
	return eq[len(eq)-1], true
}
