// Package portfolio keeps the ledger of one trader: cash, equity, margin and
// the positions it opens against a market.
package portfolio

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/money"
)

// DefaultCommissionRate is charged on the absolute value of every open and
// close.
const DefaultCommissionRate = 0.01

var (
	// ErrInvariant means the ledger no longer adds up. A run must stop.
	ErrInvariant       = errors.New("portfolio ledger invariant violated")
	ErrUnknownPosition = errors.New("position does not belong to this portfolio")
)

// Portfolio is the ledger of one trader. It is driven by a single goroutine:
// the simulation loop calls Update once per tick and EndSimulation once.
type Portfolio struct {
	name    string
	quoter  Quoter
	rate    float64
	log     zerolog.Logger
	journal journal.Journal

	scorerFactory  ScorerFactory
	deciderFactory DeciderFactory
	scorer         Scorer
	decider        Decider

	snapshotEvery int
	updates       int

	startValue money.Money
	cash       money.Money
	equity     money.Money
	margin     money.Money
	nettGain   money.Money

	open   []*Position
	closed []*Position
}

type Option func(*Portfolio)

func WithCommissionRate(rate float64) Option {
	return func(p *Portfolio) { p.rate = rate }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Portfolio) { p.log = l }
}

// WithJournal records every closed position and ledger snapshot to j.
func WithJournal(j journal.Journal) Option {
	return func(p *Portfolio) { p.journal = j }
}

// WithScorer installs the scoring hook, built against the portfolio's market.
func WithScorer(f ScorerFactory) Option {
	return func(p *Portfolio) { p.scorerFactory = f }
}

// WithDecider installs the decision hook, built against the portfolio.
func WithDecider(f DeciderFactory) Option {
	return func(p *Portfolio) { p.deciderFactory = f }
}

// WithSnapshotEvery records a ledger snapshot every n updates. Zero records
// only the final one.
func WithSnapshotEvery(n int) Option {
	return func(p *Portfolio) { p.snapshotEvery = n }
}

// New opens a ledger holding startValue in cash.
func New(q Quoter, name string, startValue money.Money, opts ...Option) (*Portfolio, error) {
	p := &Portfolio{
		name:       name,
		quoter:     q,
		rate:       DefaultCommissionRate,
		log:        zerolog.Nop(),
		journal:    journal.Discard{},
		startValue: startValue,
		cash:       startValue,
	}
	for _, o := range opts {
		o(p)
	}
	if q == nil {
		return nil, fmt.Errorf("portfolio %q: no market", name)
	}
	if math.IsNaN(p.rate) || p.rate < 0 || p.rate >= 1 {
		return nil, fmt.Errorf("portfolio %q: commission rate %v outside [0, 1)", name, p.rate)
	}
	if startValue.Sign() < 0 {
		return nil, fmt.Errorf("portfolio %q: negative start value %s", name, startValue)
	}
	if p.snapshotEvery < 0 {
		return nil, fmt.Errorf("portfolio %q: negative snapshot interval", name)
	}
	p.log = p.log.With().Str("portfolio", name).Logger()
	p.recompute()

	if p.scorerFactory != nil {
		p.scorer = p.scorerFactory(q)
	}
	if p.deciderFactory != nil {
		p.decider = p.deciderFactory(p)
	}
	return p, nil
}

func (p *Portfolio) Name() string             { return p.name }
func (p *Portfolio) Quoter() Quoter           { return p.quoter }
func (p *Portfolio) CommissionRate() float64  { return p.rate }
func (p *Portfolio) StartValue() money.Money  { return p.startValue }
func (p *Portfolio) Cash() money.Money        { return p.cash }
func (p *Portfolio) Equity() money.Money      { return p.equity }
func (p *Portfolio) Margin() money.Money      { return p.margin }
func (p *Portfolio) NettGain() money.Money    { return p.nettGain }
func (p *Portfolio) Journal() journal.Journal { return p.journal }

// OpenPositions returns the active positions in open order.
func (p *Portfolio) OpenPositions() []*Position {
	out := make([]*Position, len(p.open))
	copy(out, p.open)
	return out
}

// ClosedPositions returns the closed-position log in close order.
func (p *Portfolio) ClosedPositions() []*Position {
	out := make([]*Position, len(p.closed))
	copy(out, p.closed)
	return out
}

// Positions returns the active positions in symbol.
func (p *Portfolio) Positions(symbol string) []*Position {
	var out []*Position
	for _, pos := range p.open {
		if pos.Symbol() == symbol {
			out = append(out, pos)
		}
	}
	return out
}

// Exposure is the absolute value held in open positions, longs and shorts
// alike.
func (p *Portfolio) Exposure() money.Money {
	var total money.Money
	for _, pos := range p.open {
		total = total.Add(pos.CurrentValue().Abs())
	}
	return total
}

// CanOpen reports whether a position worth value is affordable. A long needs
// the value plus commission in cash. A short needs its absolute value in
// margin and the commission in cash.
func (p *Portfolio) CanOpen(value money.Money) bool {
	switch value.Sign() {
	case 1:
		return p.cash.Cmp(value.Add(value.Mul(p.rate))) >= 0
	case -1:
		abs := value.Abs()
		return p.margin.Cmp(abs) >= 0 && p.cash.Cmp(abs.Mul(p.rate)) >= 0
	}
	return false
}

// OpenByValue opens a position worth value at the current price; a negative
// value opens a short. It returns false when the symbol has no price or the
// position is unaffordable.
func (p *Portfolio) OpenByValue(symbol string, value money.Money, tp, sl *Threshold) (bool, error) {
	if value.IsZero() {
		return false, ErrZeroSize
	}
	price, ok := p.quoter.CurrentPrice(symbol)
	if !ok || price.Sign() <= 0 {
		return false, nil
	}
	return p.openSized(symbol, value.Ratio(price), price, tp, sl)
}

// OpenBySize opens size units; a negative size opens a short.
func (p *Portfolio) OpenBySize(symbol string, size float64, tp, sl *Threshold) (bool, error) {
	if size == 0 {
		return false, ErrZeroSize
	}
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return false, fmt.Errorf("portfolio %q: size %v", p.name, size)
	}
	price, ok := p.quoter.CurrentPrice(symbol)
	if !ok {
		return false, nil
	}
	return p.openSized(symbol, size, price, tp, sl)
}

// OpenByRatio opens a long worth ratio of cash, or for a negative ratio a
// short worth ratio of margin. A zero ratio opens nothing.
func (p *Portfolio) OpenByRatio(symbol string, ratio float64, tp, sl *Threshold) (bool, error) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return false, fmt.Errorf("portfolio %q: ratio %v", p.name, ratio)
	}
	var value money.Money
	switch {
	case ratio > 0:
		value = p.cash.Mul(ratio)
		if value.Sign() <= 0 {
			return false, nil
		}
	case ratio < 0:
		value = p.margin.Mul(ratio)
		if value.Sign() >= 0 {
			return false, nil
		}
	default:
		return false, nil
	}
	return p.OpenByValue(symbol, value, tp, sl)
}

func (p *Portfolio) openSized(symbol string, size float64, price money.Money, tp, sl *Threshold) (bool, error) {
	value := price.Mul(size)
	if !p.CanOpen(value) {
		p.log.Debug().
			Str("symbol", symbol).
			Float64("size", size).
			Str("value", value.String()).
			Str("cash", p.cash.String()).
			Msg("open rejected, insufficient funds")
		return false, nil
	}

	pos := NewPosition(p.quoter, p.rate, p.log)
	if err := pos.Open(symbol, size, price, tp, sl); err != nil {
		return false, err
	}
	p.cash = p.cash.Sub(pos.OpenValue()).Sub(pos.OpenCommission())
	p.equity = p.equity.Add(pos.CurrentValue())
	p.open = append(p.open, pos)
	p.recompute()

	p.log.Debug().
		Str("position", pos.ID()).
		Str("symbol", symbol).
		Float64("size", size).
		Str("price", price.String()).
		Str("commission", pos.OpenCommission().String()).
		Msg("position opened")
	return true, p.check()
}

// Update revalues every open position at the current tick, settles the ones
// that closed, then runs the scoring and decision hooks.
func (p *Portfolio) Update() error {
	var (
		total money.Money
		errs  []error
		open  = make([]*Position, 0, len(p.open))
	)
	for _, pos := range p.open {
		if pos.Update() {
			total = total.Add(pos.CurrentValue())
			open = append(open, pos)
			continue
		}
		if err := p.settle(pos); err != nil {
			errs = append(errs, err)
		}
	}
	p.open = open
	p.equity = total
	p.recompute()
	if err := p.check(); err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := p.runHooks(); err != nil {
		return err
	}

	p.updates++
	if p.snapshotEvery > 0 && p.updates%p.snapshotEvery == 0 {
		if err := p.journal.RecordEquity(p.Snapshot()); err != nil {
			return fmt.Errorf("portfolio %q: record equity: %w", p.name, err)
		}
	}
	return nil
}

func (p *Portfolio) runHooks() error {
	var scores map[string]Signal
	if p.scorer != nil {
		s, err := p.scorer.Execute()
		if err != nil {
			return fmt.Errorf("portfolio %q: scorer: %w", p.name, err)
		}
		scores = s
	}
	if p.decider != nil {
		if err := p.decider.Execute(scores); err != nil {
			return fmt.Errorf("portfolio %q: decider: %w", p.name, err)
		}
	}
	return nil
}

// ClosePosition closes one of the portfolio's open positions.
func (p *Portfolio) ClosePosition(pos *Position, reason CloseReason) error {
	i := p.indexOf(pos)
	if i < 0 {
		return ErrUnknownPosition
	}
	if err := pos.Close(reason); err != nil {
		return err
	}
	p.open = append(p.open[:i], p.open[i+1:]...)
	err := p.settle(pos)
	p.revalue()
	if cerr := p.check(); cerr != nil {
		return cerr
	}
	return err
}

// ClosePositions closes every open position in symbol and returns how many
// were closed.
func (p *Portfolio) ClosePositions(symbol string, reason CloseReason) (int, error) {
	n := 0
	for _, pos := range p.Positions(symbol) {
		if err := p.ClosePosition(pos, reason); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// EndSimulation closes everything still open, then records and logs the
// final ledger.
func (p *Portfolio) EndSimulation() error {
	var errs []error
	for _, pos := range p.open {
		if pos.Active() {
			if err := pos.Close(EndOfSimulation); err != nil {
				return err
			}
		}
		if err := p.settle(pos); err != nil {
			errs = append(errs, err)
		}
	}
	p.open = nil
	p.equity = money.Zero
	p.recompute()
	if err := p.check(); err != nil {
		return err
	}

	snap := p.Snapshot()
	if err := p.journal.RecordEquity(snap); err != nil {
		errs = append(errs, fmt.Errorf("portfolio %q: record equity: %w", p.name, err))
	}
	p.log.Info().
		Str("start_value", snap.StartValue.String()).
		Str("cash", snap.Cash.String()).
		Str("equity", snap.Equity.String()).
		Str("margin", snap.Margin.String()).
		Str("nett_gain", snap.NettGain.String()).
		Int("closed", snap.Closed).
		Msg("simulation finished")
	return errors.Join(errs...)
}

// Snapshot returns the ledger at the market's current time.
func (p *Portfolio) Snapshot() journal.EquitySnapshot {
	return journal.EquitySnapshot{
		Time:       p.quoter.Now(),
		Portfolio:  p.name,
		StartValue: p.startValue,
		Cash:       p.cash,
		Equity:     p.equity,
		Margin:     p.margin,
		NettGain:   p.nettGain,
		Open:       len(p.open),
		Closed:     len(p.closed),
	}
}

// settle books a closed position: its close value less commission returns
// to cash and leaves equity.
func (p *Portfolio) settle(pos *Position) error {
	p.cash = p.cash.Add(pos.CloseValue()).Sub(pos.CloseCommission())
	p.equity = p.equity.Sub(pos.CloseValue())
	p.closed = append(p.closed, pos)

	if err := p.journal.RecordTrade(p.tradeRecord(pos)); err != nil {
		return fmt.Errorf("portfolio %q: record trade %s: %w", p.name, pos.ID(), err)
	}
	return nil
}

func (p *Portfolio) tradeRecord(pos *Position) journal.TradeRecord {
	return journal.TradeRecord{
		PositionID: pos.ID(),
		Portfolio:  p.name,
		Symbol:     pos.Symbol(),
		Side:       pos.Side().String(),
		Size:       pos.Size(),
		OpenPrice:  pos.OpenPrice(),
		ClosePrice: pos.ClosePrice(),
		OpenTime:   pos.OpenTime(),
		CloseTime:  pos.CloseTime(),
		Gain:       pos.Gain(),
		Commission: pos.Commission(),
		Reason:     string(pos.Reason()),
	}
}

// revalue sets equity to the held value of the open positions.
func (p *Portfolio) revalue() {
	var total money.Money
	for _, pos := range p.open {
		total = total.Add(pos.CurrentValue())
	}
	p.equity = total
	p.recompute()
}

func (p *Portfolio) recompute() {
	p.margin = p.cash.Add(p.equity)
	p.nettGain = p.margin.Sub(p.startValue)
}

func (p *Portfolio) indexOf(pos *Position) int {
	for i, o := range p.open {
		if o == pos {
			return i
		}
	}
	return -1
}

// check verifies the ledger identities and that every position sits in the
// collection matching its state.
func (p *Portfolio) check() error {
	if !p.margin.Equal(p.cash.Add(p.equity)) {
		return fmt.Errorf("%w: %s: margin %s != cash %s + equity %s", ErrInvariant, p.name, p.margin, p.cash, p.equity)
	}
	if !p.nettGain.Equal(p.cash.Add(p.equity).Sub(p.startValue)) {
		return fmt.Errorf("%w: %s: nett gain %s != cash + equity - start", ErrInvariant, p.name, p.nettGain)
	}
	var held money.Money
	for _, pos := range p.open {
		if !pos.Active() {
			return fmt.Errorf("%w: %s: %s is %s in the open set", ErrInvariant, p.name, pos.ID(), pos.State())
		}
		if pos.Side() != Long && pos.Side() != Short {
			return fmt.Errorf("%w: %s: %s has unknown side %d", ErrInvariant, p.name, pos.ID(), int(pos.Side()))
		}
		held = held.Add(pos.CurrentValue())
	}
	if !held.Equal(p.equity) {
		return fmt.Errorf("%w: %s: equity %s != open value %s", ErrInvariant, p.name, p.equity, held)
	}
	for _, pos := range p.closed {
		if pos.State() != Closed {
			return fmt.Errorf("%w: %s: %s is %s in the closed log", ErrInvariant, p.name, pos.ID(), pos.State())
		}
	}
	return nil
}
