package strategies

import (
	"github.com/rustyeddy/backtester/portfolio"
)

// OpenOnceDecider opens a single position the first time its symbol has a
// price. It's meant as a wiring test.
type OpenOnceDecider struct {
	Symbol     string
	Size       float64
	TakeProfit *portfolio.Threshold
	StopLoss   *portfolio.Threshold

	p      *portfolio.Portfolio
	opened bool
}

// OpenOnce returns a factory for an OpenOnceDecider.
func OpenOnce(symbol string, size float64, tp, sl *portfolio.Threshold) portfolio.DeciderFactory {
	return func(p *portfolio.Portfolio) portfolio.Decider {
		return &OpenOnceDecider{
			Symbol:     symbol,
			Size:       size,
			TakeProfit: tp,
			StopLoss:   sl,
			p:          p,
		}
	}
}

func (d *OpenOnceDecider) Execute(map[string]portfolio.Signal) error {
	if d.opened {
		return nil
	}
	ok, err := d.p.OpenBySize(d.Symbol, d.Size, d.TakeProfit, d.StopLoss)
	if err != nil {
		return err
	}
	d.opened = ok
	return nil
}

// Opened reports whether the position has been opened.
func (d *OpenOnceDecider) Opened() bool { return d.opened }
