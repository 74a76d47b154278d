package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/money"
)

// fakeMarket quotes fixed prices at a settable time.
type fakeMarket struct {
	now    time.Time
	prices map[string]money.Money
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		now:    time.Date(2020, 12, 1, 14, 30, 0, 0, time.UTC),
		prices: map[string]money.Money{},
	}
}

func (m *fakeMarket) CurrentPrice(symbol string) (money.Money, bool) {
	p, ok := m.prices[symbol]
	return p, ok
}

func (m *fakeMarket) Now() time.Time { return m.now }

func (m *fakeMarket) set(symbol string, price float64) {
	m.prices[symbol] = money.FromFloat(price)
	m.now = m.now.Add(time.Minute)
}

func (m *fakeMarket) drop(symbol string) {
	delete(m.prices, symbol)
	m.now = m.now.Add(time.Minute)
}

func openPosition(t *testing.T, m *fakeMarket, size float64, tp, sl *Threshold) *Position {
	t.Helper()
	pos := NewPosition(m, 0.01, zerolog.Nop())
	price, ok := m.CurrentPrice("MMM")
	require.True(t, ok)
	require.NoError(t, pos.Open("MMM", size, price, tp, sl))
	return pos
}

func TestPositionLifecycle(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	pos := openPosition(t, m, 500, nil, nil)

	assert.Equal(t, Active, pos.State())
	assert.Equal(t, Long, pos.Side())
	assert.NotEmpty(t, pos.ID())
	assert.Equal(t, money.FromFloat(50000), pos.OpenValue())
	assert.Equal(t, money.FromFloat(500), pos.OpenCommission())
	assert.True(t, pos.Gain().IsZero())

	m.set("MMM", 101)
	require.True(t, pos.Update())
	assert.Equal(t, money.FromFloat(50500), pos.CurrentValue())
	assert.Equal(t, money.FromFloat(500), pos.Gain())

	m.set("MMM", 102)
	require.NoError(t, pos.Close(ManualClose))
	assert.Equal(t, Closed, pos.State())
	assert.Equal(t, ManualClose, pos.Reason())
	assert.Equal(t, money.FromFloat(102), pos.ClosePrice())
	assert.Equal(t, money.FromFloat(51000), pos.CloseValue())
	assert.Equal(t, money.FromFloat(510), pos.CloseCommission())
	assert.Equal(t, money.FromFloat(1010), pos.Commission())
	assert.Equal(t, money.FromFloat(1000), pos.Gain())
	assert.True(t, pos.CloseTime().After(pos.OpenTime()))

	assert.ErrorIs(t, pos.Close(ManualClose), ErrNotActive)
	assert.False(t, pos.Update())
	assert.Equal(t, money.FromFloat(102), pos.ClosePrice())
}

func TestPositionShortGain(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	pos := openPosition(t, m, -500, nil, nil)

	assert.Equal(t, Short, pos.Side())
	assert.Equal(t, money.FromFloat(-50000), pos.OpenValue())
	assert.Equal(t, money.FromFloat(500), pos.OpenCommission())

	m.set("MMM", 99)
	require.True(t, pos.Update())
	assert.Equal(t, money.FromFloat(500), pos.Gain())

	m.set("MMM", 102)
	require.True(t, pos.Update())
	assert.Equal(t, money.FromFloat(-1000), pos.Gain())
}

func TestPositionOpenErrors(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	pos := NewPosition(m, 0.01, zerolog.Nop())
	assert.ErrorIs(t, pos.Open("MMM", 0, money.FromFloat(100), nil, nil), ErrZeroSize)
	assert.Equal(t, Pending, pos.State())

	assert.ErrorIs(t, pos.Open("MMM", 5, money.FromFloat(100), AtPercent(0.5), nil), ErrInvalidThreshold)
	assert.Equal(t, Pending, pos.State())

	require.NoError(t, pos.Open("MMM", 5, money.FromFloat(100), nil, nil))
	assert.ErrorIs(t, pos.Open("MMM", 5, money.FromFloat(100), nil, nil), ErrNotPending)
}

func TestPositionIncompletePrice(t *testing.T) {
	t.Parallel()

	m := newFakeMarket()
	m.set("MMM", 100)
	pos := openPosition(t, m, 10, nil, nil)

	m.set("MMM", 101)
	require.True(t, pos.Update())

	m.drop("MMM")
	assert.False(t, pos.Update())
	assert.Equal(t, IncompletePrice, pos.Reason())
	assert.Equal(t, money.FromFloat(101), pos.ClosePrice())
	assert.Equal(t, money.FromFloat(10), pos.Gain())
	assert.Equal(t, m.now, pos.CloseTime())
}

func TestPositionThresholdTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		size  float64
		tp    *Threshold
		sl    *Threshold
		price float64
		want  CloseReason // empty stays active
	}{
		{"long take-profit at price", 10, AtPrice(money.FromFloat(110)), nil, 110, TakeProfit},
		{"long take-profit not reached", 10, AtPercent(1.1), nil, 109.99, ""},
		{"long stop-loss", 10, AtPercent(1.1), AtPercent(0.9), 90, StopLoss},
		{"long loss without stop", 10, AtPercent(1.1), nil, 50, ""},
		{"short take-profit", -10, AtPercent(0.9), nil, 90, TakeProfit},
		{"short stop-loss at price", -10, nil, AtPrice(money.FromFloat(110)), 110.01, StopLoss},
		{"short stop-loss not reached", -10, nil, AtPercent(1.1), 105, ""},
		{"short gain without target", -10, nil, AtPercent(1.1), 1, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newFakeMarket()
			m.set("MMM", 100)
			pos := openPosition(t, m, tt.size, tt.tp, tt.sl)

			m.set("MMM", tt.price)
			active := pos.Update()
			if tt.want == "" {
				assert.True(t, active)
				return
			}
			assert.False(t, active)
			assert.Equal(t, tt.want, pos.Reason())
			assert.Equal(t, money.FromFloat(tt.price), pos.ClosePrice())
		})
	}
}

func TestThresholdBounds(t *testing.T) {
	t.Parallel()

	open := money.FromFloat(100)
	tests := []struct {
		name       string
		th         *Threshold
		side       Side
		takeProfit bool
		want       float64
		wantErr    bool
	}{
		{"none", nil, Long, true, 0, false},
		{"long take-profit", AtPercent(1.05), Long, true, 105, false},
		{"long take-profit below open", AtPercent(0.95), Long, true, 0, true},
		{"long stop-loss", AtPercent(0.95), Long, false, 95, false},
		{"long stop-loss above open", AtPercent(1.05), Long, false, 0, true},
		{"long stop-loss zero", AtPercent(0), Long, false, 0, true},
		{"short take-profit", AtPercent(0.95), Short, true, 95, false},
		{"short take-profit above open", AtPercent(1.05), Short, true, 0, true},
		{"short stop-loss", AtPercent(1.05), Short, false, 105, false},
		{"short stop-loss below open", AtPercent(0.95), Short, false, 0, true},
		{"exactly one", AtPercent(1), Long, true, 0, true},
		{"nan", AtPercent(math.NaN()), Long, true, 0, true},
		{"absolute", AtPrice(money.FromFloat(42)), Short, true, 42, false},
		{"absolute zero", AtPrice(money.Zero), Long, false, 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.th.resolve(open, tt.side, tt.takeProfit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidThreshold)
				return
			}
			require.NoError(t, err)
			if tt.th == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, money.FromFloat(tt.want), *got)
		})
	}
}
