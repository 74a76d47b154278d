package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/money"
)

func newPortfolio(t *testing.T, m *fakeMarket, opts ...Option) *Portfolio {
	t.Helper()
	p, err := New(m, "test", money.FromFloat(100000), opts...)
	require.NoError(t, err)
	return p
}

func assertLedger(t *testing.T, p *Portfolio, cash, equity float64) {
	t.Helper()
	assert.Equal(t, money.FromFloat(cash), p.Cash(), "cash")
	assert.Equal(t, money.FromFloat(equity), p.Equity(), "equity")
	assert.Equal(t, money.FromFloat(cash+equity), p.Margin(), "margin")
	assert.Equal(t, money.FromFloat(cash+equity-100000), p.NettGain(), "nett gain")
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	_, err := New(m, "p", money.FromFloat(1), WithCommissionRate(-0.1))
	assert.Error(t, err)
	_, err = New(m, "p", money.FromFloat(-1))
	assert.Error(t, err)
	_, err = New(nil, "p", money.FromFloat(1))
	assert.Error(t, err)

	p, err := New(m, "p", money.FromFloat(1))
	require.NoError(t, err)
	assert.Equal(t, DefaultCommissionRate, p.CommissionRate())
}

func TestOpenLongLedger(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	p := newPortfolio(t, m)

	ok, err := p.OpenBySize("MMM", 500, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assertLedger(t, p, 49500, 50000)

	m.set("MMM", 101)
	require.NoError(t, p.Update())
	assertLedger(t, p, 49500, 50500)

	m.set("MMM", 101.5)
	require.NoError(t, p.EndSimulation())
	// close value 50750, close commission 507.50
	assertLedger(t, p, 99742.5, 0)
	assert.Empty(t, p.OpenPositions())
	require.Len(t, p.ClosedPositions(), 1)
	assert.Equal(t, EndOfSimulation, p.ClosedPositions()[0].Reason())
}

func TestOpenShortLedger(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	p := newPortfolio(t, m)

	ok, err := p.OpenBySize("MMM", -500, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assertLedger(t, p, 149500, -50000)

	m.set("MMM", 99)
	require.NoError(t, p.Update())
	assertLedger(t, p, 149500, -49500)
	assert.Equal(t, money.FromFloat(500), p.OpenPositions()[0].Gain())

	m.set("MMM", 98)
	n, err := p.ClosePositions("MMM", ManualClose)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	// close value -49000, close commission 490
	assertLedger(t, p, 100010, 0)
}

func TestCanOpen(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	p := newPortfolio(t, m)

	assert.True(t, p.CanOpen(money.FromFloat(99009.90)))
	assert.False(t, p.CanOpen(money.FromFloat(99009.91)))
	assert.True(t, p.CanOpen(money.FromFloat(-100000)))
	assert.False(t, p.CanOpen(money.FromFloat(-100000.01)))
	assert.False(t, p.CanOpen(money.Zero))

	ok, err := p.OpenBySize("MMM", 1000, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok, "value plus commission exceeds cash")
	assertLedger(t, p, 100000, 0)
	assert.Empty(t, p.OpenPositions())
}

func TestOpenRejectionsAndErrors(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	p := newPortfolio(t, m)

	ok, err := p.OpenBySize("NOPE", 1, nil, nil)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.OpenByRatio("MMM", 0, nil, nil)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = p.OpenBySize("MMM", 0, nil, nil)
	assert.ErrorIs(t, err, ErrZeroSize)
	_, err = p.OpenByValue("MMM", money.Zero, nil, nil)
	assert.ErrorIs(t, err, ErrZeroSize)
	_, err = p.OpenBySize("MMM", 1, AtPercent(0.5), nil)
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	assertLedger(t, p, 100000, 0)
}

func TestOpenByValueAndRatio(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 200)
	p := newPortfolio(t, m)

	ok, err := p.OpenByValue("MMM", money.FromFloat(20000), nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, p.OpenPositions()[0].Size())
	assertLedger(t, p, 79800, 20000)

	// a quarter of the remaining cash
	ok, err = p.OpenByRatio("MMM", 0.25, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 99.75, p.OpenPositions()[1].Size())

	// short a tenth of the margin
	ok, err = p.OpenByRatio("MMM", -0.1, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Short, p.OpenPositions()[2].Side())
	assert.Len(t, p.Positions("MMM"), 3)
	require.NoError(t, p.check())
}

func TestUpdateSettlesTriggeredPositions(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	m.set("AAA", 10)
	mem := journal.NewMemory()
	p := newPortfolio(t, m, WithJournal(mem))

	_, err := p.OpenBySize("MMM", 100, AtPercent(1.05), nil)
	require.NoError(t, err)
	_, err = p.OpenBySize("AAA", 100, nil, nil)
	require.NoError(t, err)
	assertLedger(t, p, 88890, 11000)

	m.set("MMM", 105)
	m.drop("AAA")
	require.NoError(t, p.Update())

	require.Len(t, p.ClosedPositions(), 2)
	assert.Equal(t, TakeProfit, p.ClosedPositions()[0].Reason())
	assert.Equal(t, IncompletePrice, p.ClosedPositions()[1].Reason())
	// 88890 + (10500 - 105) + (1000 - 10)
	assertLedger(t, p, 100275, 0)

	trades := mem.Trades("test")
	require.Len(t, trades, 2)
	assert.Equal(t, "take_profit", trades[0].Reason)
	assert.Equal(t, money.FromFloat(500), trades[0].Gain)
	assert.Equal(t, money.FromFloat(205), trades[0].Commission)
	assert.Equal(t, "long", trades[0].Side)
}

func TestHooksRunAfterValuation(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)

	var seen []map[string]Signal
	scorer := func(q Quoter) Scorer {
		return ScorerFunc(func() (map[string]Signal, error) {
			price, _ := q.CurrentPrice("MMM")
			if price.GreaterThan(money.FromFloat(100)) {
				return map[string]Signal{"MMM": Sell}, nil
			}
			return map[string]Signal{"MMM": Buy}, nil
		})
	}
	decider := func(p *Portfolio) Decider {
		return DeciderFunc(func(scores map[string]Signal) error {
			seen = append(seen, scores)
			switch scores["MMM"] {
			case Buy:
				if len(p.Positions("MMM")) == 0 {
					_, err := p.OpenBySize("MMM", 10, nil, nil)
					return err
				}
			case Sell:
				_, err := p.ClosePositions("MMM", ManualClose)
				return err
			}
			return nil
		})
	}
	p := newPortfolio(t, m, WithScorer(scorer), WithDecider(decider))

	require.NoError(t, p.Update())
	require.Len(t, p.OpenPositions(), 1)

	m.set("MMM", 101)
	require.NoError(t, p.Update())
	assert.Empty(t, p.OpenPositions())
	require.Len(t, p.ClosedPositions(), 1)
	assert.Equal(t, ManualClose, p.ClosedPositions()[0].Reason())
	assert.Len(t, seen, 2)
}

func TestHookErrorAbortsUpdate(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	boom := errors.New("boom")
	p := newPortfolio(t, m, WithScorer(func(Quoter) Scorer {
		return ScorerFunc(func() (map[string]Signal, error) { return nil, boom })
	}))
	assert.ErrorIs(t, p.Update(), boom)
}

func TestClosePositionUnknown(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	a := newPortfolio(t, m)
	b := newPortfolio(t, m)

	_, err := a.OpenBySize("MMM", 1, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, b.ClosePosition(a.OpenPositions()[0], ManualClose), ErrUnknownPosition)
}

func TestEndSimulationJournal(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	mem := journal.NewMemory()
	p := newPortfolio(t, m, WithJournal(mem), WithSnapshotEvery(2))

	_, err := p.OpenBySize("MMM", 10, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		m.set("MMM", 100+float64(i))
		require.NoError(t, p.Update())
	}
	require.NoError(t, p.EndSimulation())

	snaps := mem.Equity("test")
	require.Len(t, snaps, 3)
	last := snaps[2]
	assert.True(t, last.Equity.IsZero())
	assert.Equal(t, last.Cash, last.Margin)
	assert.Equal(t, 0, last.Open)
	assert.Equal(t, 1, last.Closed)
	assert.Equal(t, m.now, last.Time)
	require.Len(t, mem.Trades(""), 1)
	assert.Equal(t, "end_of_simulation", mem.Trades("")[0].Reason)
}

func TestInvariantViolationIsFatal(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	p := newPortfolio(t, m)
	_, err := p.OpenBySize("MMM", 10, nil, nil)
	require.NoError(t, err)

	p.equity = p.equity.Add(money.FromCents(1))
	p.recompute()
	assert.ErrorIs(t, p.check(), ErrInvariant)

	p.revalue()
	p.open[0].state = Closed
	assert.ErrorIs(t, p.check(), ErrInvariant)
}

func TestLedgerInvariantsHold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("margin and nett gain follow cash and equity", prop.ForAll(
		func(prices []float64, actions []int) bool {
			m := newFakeMarket()
			p, err := New(m, "prop", money.FromFloat(100000))
			if err != nil {
				return false
			}
			for i, price := range prices {
				m.set("MMM", price)
				switch actions[i%len(actions)] {
				case 1:
					_, err = p.OpenByRatio("MMM", 0.2, AtPercent(1.2), AtPercent(0.8))
				case 2:
					_, err = p.OpenByRatio("MMM", -0.2, nil, AtPercent(1.25))
				case 3:
					_, err = p.ClosePositions("MMM", ManualClose)
				}
				if err != nil {
					return false
				}
				if err := p.Update(); err != nil {
					return false
				}
				if !p.Margin().Equal(p.Cash().Add(p.Equity())) {
					return false
				}
				if !p.NettGain().Equal(p.Margin().Sub(p.StartValue())) {
					return false
				}
			}
			if err := p.EndSimulation(); err != nil {
				return false
			}
			return p.Equity().IsZero() && p.Margin().Equal(p.Cash()) && len(p.OpenPositions()) == 0
		},
		gen.SliceOfN(40, gen.Float64Range(50, 150)),
		gen.SliceOfN(40, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
