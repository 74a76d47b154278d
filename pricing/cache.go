package pricing

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/money"
)

// Stats counts cache activity since creation.
type Stats struct {
	Loads  int // provider calls
	Builds int // interpolators constructed
	Evals  int // interpolator evaluations
	Hits   int // same-tick memo hits
	Absent int // lookups answered "no price"
}

// series is one symbol's state for the active session.
type series struct {
	bars   []market.Bar
	fn     *Interpolator
	absent bool

	memo     bool
	memoTick int
	memoVal  money.Money
}

// Cache answers "price of symbol at tick" for the active session. The day's
// bars are loaded on Refresh; the interpolator is built on the first query
// of the day and every evaluated tick is memoized, so repeated lookups in
// the same tick cost a map access.
//
// Symbols outside the universe are loaded on their first query of the day.
// A symbol that has no usable data for the day stays absent until the next
// Refresh.
type Cache struct {
	mu       sync.Mutex
	provider market.PriceProvider
	mode     Extrapolation
	log      zerolog.Logger

	symbols []string
	session market.Session
	active  bool
	series  map[string]*series
	stats   Stats
}

type CacheOption func(*Cache)

func WithExtrapolation(m Extrapolation) CacheOption {
	return func(c *Cache) { c.mode = m }
}

func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// WithSymbols sets the symbol universe loaded on every Refresh.
func WithSymbols(symbols ...string) CacheOption {
	return func(c *Cache) { c.symbols = append(c.symbols, symbols...) }
}

func NewCache(p market.PriceProvider, opts ...CacheOption) *Cache {
	c := &Cache{
		provider: p,
		log:      zerolog.Nop(),
		series:   make(map[string]*series),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Symbols is the symbol universe.
func (c *Cache) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Refresh activates session s, dropping every memo and interpolator from the
// previous day and loading the new day's bars for all symbols.
func (c *Cache) Refresh(ctx context.Context, s market.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = s
	c.active = true
	c.series = make(map[string]*series, len(c.symbols))

	for _, sym := range c.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.series[sym] = c.loadLocked(ctx, sym)
	}
	return nil
}

func (c *Cache) loadLocked(ctx context.Context, sym string) *series {
	c.stats.Loads++
	bars, err := c.provider.Bars(ctx, sym, c.session)
	if err != nil {
		c.log.Warn().Err(err).
			Str("symbol", sym).
			Str("date", c.session.Key()).
			Msg("price load failed, symbol has no price today")
		return &series{absent: true}
	}
	if err := market.ValidateBars(bars); err != nil {
		c.log.Warn().Err(err).
			Str("symbol", sym).
			Str("date", c.session.Key()).
			Msg("bars out of order, symbol has no price today")
		return &series{absent: true}
	}
	return &series{bars: market.Within(bars, c.session)}
}

// Price returns the price of symbol at tick (minutes since session open).
func (c *Cache) Price(symbol string, tick int) (money.Money, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		c.stats.Absent++
		return money.Zero, false
	}
	sr, ok := c.series[symbol]
	if !ok {
		sr = c.loadLocked(context.Background(), symbol)
		c.series[symbol] = sr
	}
	if sr.absent {
		c.stats.Absent++
		return money.Zero, false
	}
	if sr.memo && sr.memoTick == tick {
		c.stats.Hits++
		return sr.memoVal, true
	}

	if sr.fn == nil {
		fn, err := FromBars(c.session, sr.bars, c.mode)
		if err != nil {
			c.markAbsentLocked(symbol, sr, err)
			return money.Zero, false
		}
		sr.fn = fn
		sr.bars = nil
		c.stats.Builds++
	}

	c.stats.Evals++
	v, err := money.FromFloatE(sr.fn.At(float64(tick)))
	if err != nil {
		c.markAbsentLocked(symbol, sr, err)
		return money.Zero, false
	}
	sr.memo = true
	sr.memoTick = tick
	sr.memoVal = v
	return v, true
}

func (c *Cache) markAbsentLocked(symbol string, sr *series, err error) {
	sr.absent = true
	sr.fn = nil
	sr.bars = nil
	sr.memo = false
	c.stats.Absent++
	c.log.Warn().Err(err).
		Str("symbol", symbol).
		Str("date", c.session.Key()).
		Msg("no interpolated price, symbol has no price today")
}

// Session returns the active session.
func (c *Cache) Session() (market.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.active
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
