package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/money"
)

func TestNewReport(t *testing.T) {
	t.Parallel()

	snaps := []EquitySnapshot{
		sampleSnapshot("p1", openT, 100000),
		sampleSnapshot("p1", openT.Add(time.Minute), 110000),
		sampleSnapshot("p1", closeT, 99000),
	}
	stop := sampleTrade("b", "p1", -500)
	stop.Reason = "stop_loss"
	trades := []TradeRecord{sampleTrade("a", "p1", 1500), stop, sampleTrade("c", "p1", 0)}

	r := NewReport("p1", snaps, trades)

	assert.Equal(t, money.FromFloat(99000), r.Margin)
	assert.Equal(t, money.FromFloat(-1000), r.NettGain)
	assert.InDelta(t, -1.0, r.ReturnPct, 1e-9)
	assert.InDelta(t, 10.0, r.MaxDDPct, 1e-9)
	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.InDelta(t, 1.0/3.0, r.WinRate, 1e-9)
	assert.InDelta(t, 3.0, r.ProfitFactor(), 1e-9)
	assert.Equal(t, money.FromFloat(3*1007.5), r.Commission)
	assert.Equal(t, []string{"end_of_simulation", "stop_loss"}, r.Reasons())
	assert.True(t, r.Start.Equal(openT))
	assert.True(t, r.End.Equal(closeT))
}

func TestNewReportEmpty(t *testing.T) {
	t.Parallel()

	r := NewReport("p", nil, nil)
	assert.Zero(t, r.ReturnPct)
	assert.Zero(t, r.WinRate)
	assert.Zero(t, r.ProfitFactor())

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "portfolio p  - -> -")
}

func TestReportWriteText(t *testing.T) {
	t.Parallel()

	r := NewReport("p1", []EquitySnapshot{sampleSnapshot("p1", closeT, 99000)}, []TradeRecord{sampleTrade("a", "p1", 750)})

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "nett gain    -1000.00 (-1.00%)")
	assert.Contains(t, out, "trades       1 (wins 1, losses 0, win rate 100.00%)")
	assert.Contains(t, out, "MMM\tlong\t500\t100.00 @ 2020-12-01 14:30 -> 101.50 @ 2020-12-03 20:59\tgain 750.00")
}

func TestReportWriteOrg(t *testing.T) {
	t.Parallel()

	r := NewReport("p1", []EquitySnapshot{sampleSnapshot("p1", closeT, 99000)}, []TradeRecord{sampleTrade("01HXYZABCDEFGH", "p1", 750)})

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: p1\n"))
	assert.Contains(t, out, ":NETT_GAIN:   -1000.00")
	assert.Contains(t, out, ":PROFIT_FAC:  -")
	assert.Contains(t, out, "| end_of_simulation | 1 |")
	assert.Contains(t, out, "** LONG MMM (ABCDEFGH)")
	assert.Contains(t, out, ":GAIN: 750.00")
	assert.Contains(t, out, ":REASON: end_of_simulation")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]TradeRecord{sampleTrade("a", "p", 1), sampleTrade("b", "p", 2)})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, ":END:\n\n** LONG MMM (b)")
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatTradeOrgRun(t *testing.T) {
	t.Parallel()

	rec := sampleTrade("a", "p", 1)
	assert.NotContains(t, FormatTradeOrg(rec), ":RUN:")
	rec.RunID = "run-1"
	assert.Contains(t, FormatTradeOrg(rec), ":ID: a\n:RUN: run-1\n")
}
