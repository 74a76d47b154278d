package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/money"
)

var (
	openT  = time.Date(2020, 12, 1, 14, 30, 0, 0, time.UTC)
	closeT = time.Date(2020, 12, 3, 20, 59, 0, 0, time.UTC)
)

func sampleTrade(id, portfolio string, gain float64) TradeRecord {
	return TradeRecord{
		PositionID: id,
		Portfolio:  portfolio,
		Symbol:     "MMM",
		Side:       "long",
		Size:       500,
		OpenPrice:  money.FromFloat(100),
		ClosePrice: money.FromFloat(101.5),
		OpenTime:   openT,
		CloseTime:  closeT,
		Gain:       money.FromFloat(gain),
		Commission: money.FromFloat(1007.5),
		Reason:     "end_of_simulation",
	}
}

func sampleSnapshot(portfolio string, at time.Time, margin float64) EquitySnapshot {
	m := money.FromFloat(margin)
	start := money.FromFloat(100000)
	return EquitySnapshot{
		Time:       at,
		Portfolio:  portfolio,
		StartValue: start,
		Cash:       m,
		Margin:     m,
		NettGain:   m.Sub(start),
		Closed:     1,
	}
}

func TestMemoryJournal(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	require.NoError(t, m.RecordTrade(sampleTrade("a", "p1", 1)))
	require.NoError(t, m.RecordTrade(sampleTrade("b", "p2", 1)))
	require.NoError(t, m.RecordEquity(sampleSnapshot("p1", openT, 100000)))
	require.NoError(t, m.RecordEquity(sampleSnapshot("p1", closeT, 99000)))

	assert.Len(t, m.Trades(""), 2)
	assert.Len(t, m.Trades("p2"), 1)

	last, ok := m.Last("p1")
	require.True(t, ok)
	assert.Equal(t, money.FromFloat(99000), last.Margin)
	_, ok = m.Last("p2")
	assert.False(t, ok)
	assert.NoError(t, m.Close())
}

type failing struct{ Discard }

func (failing) RecordTrade(TradeRecord) error { return errors.New("disk full") }

func TestMultiStopsAtFirstError(t *testing.T) {
	t.Parallel()

	a, b := NewMemory(), NewMemory()
	require.NoError(t, Multi{a, b}.RecordEquity(sampleSnapshot("p", openT, 1)))
	assert.Len(t, a.Equity(""), 1)
	assert.Len(t, b.Equity(""), 1)

	err := Multi{a, failing{}, b}.RecordTrade(sampleTrade("x", "p", 1))
	assert.EqualError(t, err, "disk full")
	assert.Len(t, a.Trades(""), 1)
	assert.Empty(t, b.Trades(""))
}

func TestRunStampsRecords(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	j := Run{ID: "run-1", Journal: m}
	rec := sampleTrade("a", "p1", 1)
	require.NoError(t, j.RecordTrade(rec))
	require.NoError(t, j.RecordEquity(sampleSnapshot("p1", openT, 1)))
	assert.Empty(t, rec.RunID, "caller's record is not modified")

	assert.Equal(t, "run-1", m.Trades("p1")[0].RunID)
	last, ok := m.Last("p1")
	require.True(t, ok)
	assert.Equal(t, "run-1", last.RunID)
	assert.NoError(t, j.Close())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	csvj, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	j := Run{ID: "R1", Journal: csvj}
	require.NoError(t, j.RecordTrade(sampleTrade("T1", "p1", -12.5)))
	require.NoError(t, j.RecordEquity(sampleSnapshot("p1", closeT, 99000.25)))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 2)
	assert.Equal(t, tradeHeader, trades[0])
	assert.Equal(t, []string{
		"T1", "p1", "MMM", "long", "500", "100.00", "101.50",
		"2020-12-01T14:30:00Z", "2020-12-03T20:59:00Z", "-12.50", "1007.50", "end_of_simulation", "R1",
	}, trades[1])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, equityHeader, equity[0])
	assert.Equal(t, []string{"2020-12-03T20:59:00Z", "p1", "100000.00", "99000.25", "0.00", "99000.25", "-999.75", "0", "1", "R1"}, equity[1])
}

func TestCSVJournalBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "t.csv"), "e.csv")
	assert.Error(t, err)
}
