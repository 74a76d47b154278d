package strategies

import (
	"sort"

	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/risk"
)

// ThresholdDecider acts on Buy and Sell scores. A symbol already held has
// its positions on the other side closed; a symbol not held gets a new
// position worth Value on the signalled side, or sized from the stop when
// the policy sets RiskPct. Opens the policy rejects are skipped.
type ThresholdDecider struct {
	Value      money.Money
	TakeProfit float64
	StopLoss   float64
	Policy     risk.Policy

	p        *portfolio.Portfolio
	rejected int
}

// Threshold returns a factory for a ThresholdDecider. tp and sl are
// fractional distances from the open price, 0 for none.
func Threshold(value money.Money, tp, sl float64) portfolio.DeciderFactory {
	return ThresholdWithPolicy(value, tp, sl, risk.Policy{})
}

// ThresholdWithPolicy is Threshold with opens checked against policy.
func ThresholdWithPolicy(value money.Money, tp, sl float64, policy risk.Policy) portfolio.DeciderFactory {
	return func(p *portfolio.Portfolio) portfolio.Decider {
		return &ThresholdDecider{Value: value, TakeProfit: tp, StopLoss: sl, Policy: policy, p: p}
	}
}

// Rejected counts the opens the policy refused.
func (d *ThresholdDecider) Rejected() int { return d.rejected }

func (d *ThresholdDecider) Execute(scores map[string]portfolio.Signal) error {
	symbols := make([]string, 0, len(scores))
	for sym := range scores {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		var side portfolio.Side
		switch scores[sym] {
		case portfolio.Buy:
			side = portfolio.Long
		case portfolio.Sell:
			side = portfolio.Short
		default:
			continue
		}

		if held := d.p.Positions(sym); len(held) > 0 {
			for _, pos := range held {
				if pos.Side() == side {
					continue
				}
				if err := d.p.ClosePosition(pos, portfolio.ManualClose); err != nil {
					return err
				}
			}
			continue
		}

		if err := d.open(sym, side); err != nil {
			return err
		}
	}
	return nil
}

func (d *ThresholdDecider) open(sym string, side portfolio.Side) error {
	price, ok := d.p.Quoter().CurrentPrice(sym)
	if !ok || price.Sign() <= 0 {
		return nil
	}

	dir := float64(side)
	intent := risk.Intent{Symbol: sym, Entry: price, Size: d.Value.Ratio(price)}
	if d.StopLoss > 0 {
		intent.Stop = price.Mul(1 - dir*d.StopLoss)
	}
	if d.TakeProfit > 0 {
		intent.TakeProfit = price.Mul(1 + dir*d.TakeProfit)
	}
	if d.Policy.RiskPct > 0 && !intent.Stop.IsZero() {
		intent.Size, _ = risk.Size(d.p.Margin(), d.Policy.RiskPct, price, intent.Stop)
	}
	intent.Size *= dir

	acct := risk.Account{
		Margin:   d.p.Margin(),
		Exposure: d.p.Exposure(),
		Open:     len(d.p.OpenPositions()),
	}
	if dec := risk.Evaluate(d.Policy, intent, acct); !dec.Allowed {
		d.rejected++
		return nil
	}

	tp, sl := exits(side, d.TakeProfit, d.StopLoss)
	_, err := d.p.OpenBySize(sym, intent.Size, tp, sl)
	return err
}
