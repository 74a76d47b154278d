package portfolio

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/money"
)

// Threshold is a take-profit or stop-loss level, either an absolute price or
// a multiple of the open price.
type Threshold struct {
	price   money.Money
	mult    float64
	percent bool
}

// AtPrice triggers at an absolute price.
func AtPrice(m money.Money) *Threshold {
	return &Threshold{price: m}
}

// AtPercent triggers at mult times the open price. For a long take-profit
// mult must be above 1 and for a long stop-loss between 0 and 1; shorts
// mirror both ranges.
func AtPercent(mult float64) *Threshold {
	return &Threshold{mult: mult, percent: true}
}

func (t *Threshold) String() string {
	if t == nil {
		return "none"
	}
	if t.percent {
		return fmt.Sprintf("open*%g", t.mult)
	}
	return t.price.String()
}

// resolve turns t into a price for a position opened at open. A nil
// threshold resolves to no level.
func (t *Threshold) resolve(open money.Money, side Side, takeProfit bool) (*money.Money, error) {
	if t == nil {
		return nil, nil
	}
	if !t.percent {
		if t.price.Sign() <= 0 {
			return nil, fmt.Errorf("%w: price %s", ErrInvalidThreshold, t.price)
		}
		p := t.price
		return &p, nil
	}

	m := t.mult
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return nil, fmt.Errorf("%w: multiplier %v", ErrInvalidThreshold, m)
	}
	above := m > 1
	below := m > 0 && m < 1
	// above the open price is profit for a long and loss for a short
	wantAbove := takeProfit == (side == Long)
	if (wantAbove && !above) || (!wantAbove && !below) {
		kind := "stop-loss"
		if takeProfit {
			kind = "take-profit"
		}
		return nil, fmt.Errorf("%w: %s multiplier %g for a %s position", ErrInvalidThreshold, kind, m, side)
	}
	p := open.Mul(m)
	return &p, nil
}
