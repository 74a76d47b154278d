// Package sim drives a replay: a minute clock over a trading calendar that
// quotes interpolated prices to the portfolios registered against it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/pricing"
)

var ErrNotStarted = errors.New("market clock not started")

// Clock is the position of the market clock.
type Clock struct {
	Day        int
	Tick       int
	TotalTicks int
	Now        time.Time
	Session    market.Session
}

// TickRecorder observes the clock after every successful advance.
type TickRecorder func(Clock)

// Market owns the simulation clock. It is driven by one goroutine; traders
// read it between advances.
type Market struct {
	cal      *market.Calendar
	cache    *pricing.Cache
	freq     Frequency
	log      zerolog.Logger
	rate     float64
	recorder TickRecorder

	started  bool
	finished bool
	day      int
	tick     int
	total    int
	now      time.Time
	session  market.Session

	traders    []Trader
	portfolios []*portfolio.Portfolio
}

type Option func(*Market)

func WithFrequency(f Frequency) Option {
	return func(m *Market) { m.freq = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Market) { m.log = l }
}

// WithCommissionRate sets the default rate of portfolios registered on the
// market.
func WithCommissionRate(rate float64) Option {
	return func(m *Market) { m.rate = rate }
}

func WithTickRecorder(r TickRecorder) Option {
	return func(m *Market) { m.recorder = r }
}

// NewMarket builds a stopped clock over cal, quoting prices from cache.
func NewMarket(cal *market.Calendar, cache *pricing.Cache, opts ...Option) (*Market, error) {
	if cal == nil || cal.Len() == 0 {
		return nil, market.ErrEmptyCalendar
	}
	if cache == nil {
		return nil, fmt.Errorf("market: no price cache")
	}
	m := &Market{
		cal:   cal,
		cache: cache,
		freq:  Minute{},
		log:   zerolog.Nop(),
		rate:  portfolio.DefaultCommissionRate,
	}
	for _, o := range opts {
		o(m)
	}
	if m.freq == nil {
		return nil, ErrInvalidFrequency
	}
	return m, nil
}

// Start activates the first session at its open.
func (m *Market) Start(ctx context.Context) error {
	s, _ := m.cal.At(0)
	if err := m.cache.Refresh(ctx, s); err != nil {
		return err
	}
	m.started = true
	m.finished = false
	m.day, m.tick, m.total = 0, 0, 0
	m.session = s
	m.now = s.Open

	m.log.Info().
		Str("from", m.cal.First().Key()).
		Str("to", m.cal.Last().Key()).
		Int("sessions", m.cal.Len()).
		Str("frequency", m.freq.Name()).
		Msg("market open")
	return nil
}

// Advance moves the clock to the next tick. At the last tick of a session
// it moves to the open of the next session; when there is none it reports
// false and leaves the time unchanged. Every call counts toward TotalTicks.
func (m *Market) Advance(ctx context.Context) (bool, error) {
	if !m.started {
		return false, ErrNotStarted
	}
	if m.finished {
		return false, nil
	}
	m.total++

	if next, ok := m.freq.Next(m.session, m.tick); ok {
		m.tick = next
		m.now = m.session.Open.Add(time.Duration(next) * time.Minute)
		m.record()
		return true, nil
	}

	m.day++
	s, ok := m.cal.At(m.day)
	if !ok {
		m.finished = true
		m.log.Info().Int("total_ticks", m.total).Msg("calendar exhausted")
		return false, nil
	}
	if err := m.cache.Refresh(ctx, s); err != nil {
		return false, err
	}
	m.session = s
	m.tick = 0
	m.now = s.Open
	m.log.Debug().Str("date", s.Key()).Int("day", m.day).Msg("session open")
	m.record()
	return true, nil
}

func (m *Market) record() {
	if m.recorder != nil {
		m.recorder(m.Clock())
	}
}

// CurrentPrice returns the price of symbol at the current tick.
func (m *Market) CurrentPrice(symbol string) (money.Money, bool) {
	if !m.started {
		return money.Zero, false
	}
	return m.cache.Price(symbol, m.tick)
}

func (m *Market) Now() time.Time             { return m.now }
func (m *Market) Tick() int                  { return m.tick }
func (m *Market) Day() int                   { return m.day }
func (m *Market) TotalTicks() int            { return m.total }
func (m *Market) Session() market.Session    { return m.session }
func (m *Market) Finished() bool             { return m.finished }
func (m *Market) Frequency() Frequency       { return m.freq }
func (m *Market) Calendar() *market.Calendar { return m.cal }
func (m *Market) Symbols() []string          { return m.cache.Symbols() }
func (m *Market) CacheStats() pricing.Stats  { return m.cache.Stats() }

func (m *Market) Clock() Clock {
	return Clock{
		Day:        m.day,
		Tick:       m.tick,
		TotalTicks: m.total,
		Now:        m.now,
		Session:    m.session,
	}
}
