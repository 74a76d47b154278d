package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/pkg/id"
)

var (
	ErrZeroSize         = errors.New("position size must not be zero")
	ErrInvalidThreshold = errors.New("invalid take-profit/stop-loss threshold")
	ErrNotActive        = errors.New("position is not active")
	ErrNotPending       = errors.New("position was already opened")
)

// Quoter is the market view a position needs: the price of a symbol at the
// current tick, absent when the symbol has no data, and the current time.
type Quoter interface {
	CurrentPrice(symbol string) (money.Money, bool)
	Now() time.Time
}

type State int

const (
	Pending State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type CloseReason string

const (
	ManualClose     CloseReason = "manual_close"
	TakeProfit      CloseReason = "take_profit"
	StopLoss        CloseReason = "stop_loss"
	IncompletePrice CloseReason = "incomplete_price"
	EndOfSimulation CloseReason = "end_of_simulation"
)

type Side int

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Position is one exposure in a symbol. A position moves Pending -> Active ->
// Closed and never leaves Closed.
type Position struct {
	id     string
	quoter Quoter
	rate   float64
	log    zerolog.Logger

	state  State
	reason CloseReason
	symbol string
	size   float64
	side   Side

	openPrice      money.Money
	openValue      money.Money
	openTime       time.Time
	openCommission money.Money

	currentPrice money.Money
	currentValue money.Money
	gain         money.Money

	takeProfit *money.Money
	stopLoss   *money.Money

	closePrice      money.Money
	closeValue      money.Money
	closeTime       time.Time
	closeCommission money.Money
}

// NewPosition returns a pending position priced by q and charged rate on
// each side of the trade.
func NewPosition(q Quoter, rate float64, log zerolog.Logger) *Position {
	return &Position{quoter: q, rate: rate, log: log}
}

// Open activates the position at price. A zero size or an out of range
// threshold is a configuration error and leaves the position pending.
func (p *Position) Open(symbol string, size float64, price money.Money, tp, sl *Threshold) error {
	if p.state != Pending {
		return ErrNotPending
	}
	if size == 0 {
		return ErrZeroSize
	}
	side := Long
	if size < 0 {
		side = Short
	}
	takeProfit, err := tp.resolve(price, side, true)
	if err != nil {
		return err
	}
	stopLoss, err := sl.resolve(price, side, false)
	if err != nil {
		return err
	}

	now := p.quoter.Now()
	p.id = id.At(now)
	p.symbol = symbol
	p.size = size
	p.side = side
	p.takeProfit = takeProfit
	p.stopLoss = stopLoss

	p.openPrice = price
	p.openValue = price.Mul(size)
	p.openTime = now
	p.openCommission = p.openValue.Abs().Mul(p.rate)

	p.currentPrice = price
	p.currentValue = p.openValue
	p.gain = money.Zero
	p.state = Active
	return nil
}

// Update revalues an active position at the current tick. It closes the
// position when its symbol has no price or a threshold is crossed, and
// reports whether the position is still active.
func (p *Position) Update() bool {
	if p.state != Active {
		return false
	}
	price, ok := p.quoter.CurrentPrice(p.symbol)
	if !ok {
		p.log.Warn().
			Str("position", p.id).
			Str("symbol", p.symbol).
			Time("at", p.quoter.Now()).
			Str("last_price", p.currentPrice.String()).
			Msg("no price, closing position")
		p.closeAt(p.currentPrice, IncompletePrice)
		return false
	}

	if reason, hit := p.triggered(price); hit {
		p.closeAt(price, reason)
		return false
	}
	p.revalue(price)
	return true
}

func (p *Position) triggered(price money.Money) (CloseReason, bool) {
	if p.side == Long {
		if p.takeProfit != nil && price.Cmp(*p.takeProfit) >= 0 {
			return TakeProfit, true
		}
		if p.stopLoss != nil && price.Cmp(*p.stopLoss) <= 0 {
			return StopLoss, true
		}
		return "", false
	}
	if p.takeProfit != nil && price.Cmp(*p.takeProfit) <= 0 {
		return TakeProfit, true
	}
	if p.stopLoss != nil && price.Cmp(*p.stopLoss) >= 0 {
		return StopLoss, true
	}
	return "", false
}

func (p *Position) revalue(price money.Money) {
	p.currentPrice = price
	p.currentValue = price.Mul(p.size)
	p.gain = p.currentValue.Sub(p.openValue)
}

// Close closes an active position at the current market price, or at the
// last known price when the symbol has none.
func (p *Position) Close(reason CloseReason) error {
	if p.state != Active {
		return ErrNotActive
	}
	price, ok := p.quoter.CurrentPrice(p.symbol)
	if !ok {
		price = p.currentPrice
	}
	p.closeAt(price, reason)
	return nil
}

// closeAt revalues at price, then charges commission on the resulting close
// value.
func (p *Position) closeAt(price money.Money, reason CloseReason) {
	p.revalue(price)
	p.closePrice = price
	p.closeValue = p.currentValue
	p.closeTime = p.quoter.Now()
	p.closeCommission = p.closeValue.Abs().Mul(p.rate)
	p.reason = reason
	p.state = Closed

	p.log.Debug().
		Str("position", p.id).
		Str("symbol", p.symbol).
		Str("reason", string(reason)).
		Str("price", price.String()).
		Str("gain", p.gain.String()).
		Msg("position closed")
}

func (p *Position) ID() string          { return p.id }
func (p *Position) State() State        { return p.state }
func (p *Position) Active() bool        { return p.state == Active }
func (p *Position) Reason() CloseReason { return p.reason }
func (p *Position) Symbol() string      { return p.symbol }
func (p *Position) Size() float64       { return p.size }
func (p *Position) Side() Side          { return p.side }

func (p *Position) OpenPrice() money.Money      { return p.openPrice }
func (p *Position) OpenValue() money.Money      { return p.openValue }
func (p *Position) OpenTime() time.Time         { return p.openTime }
func (p *Position) OpenCommission() money.Money { return p.openCommission }

func (p *Position) CurrentPrice() money.Money { return p.currentPrice }
func (p *Position) CurrentValue() money.Money { return p.currentValue }

// Gain is unrealized while active and realized once closed.
func (p *Position) Gain() money.Money { return p.gain }

func (p *Position) ClosePrice() money.Money      { return p.closePrice }
func (p *Position) CloseValue() money.Money      { return p.closeValue }
func (p *Position) CloseTime() time.Time         { return p.closeTime }
func (p *Position) CloseCommission() money.Money { return p.closeCommission }

// Commission is the open plus close commission.
func (p *Position) Commission() money.Money {
	return p.openCommission.Add(p.closeCommission)
}

// TakeProfit returns the resolved take-profit price, if any.
func (p *Position) TakeProfit() (money.Money, bool) {
	if p.takeProfit == nil {
		return money.Zero, false
	}
	return *p.takeProfit, true
}

// StopLoss returns the resolved stop-loss price, if any.
func (p *Position) StopLoss() (money.Money, bool) {
	if p.stopLoss == nil {
		return money.Zero, false
	}
	return *p.stopLoss, true
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s %g @ %s (%s)", p.side, p.symbol, p.size, p.openPrice, p.state)
}
