package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/portfolio"
)

// Trader is anything the market updates once per tick.
type Trader interface {
	Update() error
	EndSimulation() error
}

// AddTrader registers t to be updated every tick, in registration order.
func (m *Market) AddTrader(t Trader) {
	m.traders = append(m.traders, t)
}

// RegisterPortfolio creates a portfolio quoting from m and registers it as a
// trader. The market's commission rate and logger apply unless opts override
// them.
func (m *Market) RegisterPortfolio(name string, startValue money.Money, opts ...portfolio.Option) (*portfolio.Portfolio, error) {
	for _, p := range m.portfolios {
		if p.Name() == name {
			return nil, fmt.Errorf("portfolio %q already registered", name)
		}
	}
	base := []portfolio.Option{
		portfolio.WithCommissionRate(m.rate),
		portfolio.WithLogger(m.log),
	}
	p, err := portfolio.New(m, name, startValue, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	m.portfolios = append(m.portfolios, p)
	m.AddTrader(p)
	return p, nil
}

// Portfolios returns the registered portfolios in registration order.
func (m *Market) Portfolios() []*portfolio.Portfolio {
	out := make([]*portfolio.Portfolio, len(m.portfolios))
	copy(out, m.portfolios)
	return out
}

// Run replays the calendar. Every trader is updated at every tick before the
// clock advances; when the calendar is exhausted every trader ends its
// simulation. ctx is checked between ticks, and any trader error stops the
// run.
func (m *Market) Run(ctx context.Context) error {
	if !m.started {
		if err := m.Start(ctx); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, t := range m.traders {
			if err := t.Update(); err != nil {
				return fmt.Errorf("tick %d (%s): %w", m.total, m.now.Format("2006-01-02 15:04"), err)
			}
		}
		ok, err := m.Advance(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}

	var errs []error
	for _, t := range m.traders {
		if err := t.EndSimulation(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
