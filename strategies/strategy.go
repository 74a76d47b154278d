// Package strategies provides the scoring and decision hooks a portfolio
// runs every tick, and a registry that builds them by name.
package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/money"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/risk"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Params configure a strategy built from the registry. Zero values take
// each strategy's defaults.
type Params struct {
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty" toml:"symbols,omitempty"`

	// Size is the open-once position size; negative for a short.
	Size float64 `json:"size" yaml:"size" toml:"size"`

	// Value is what the threshold decider opens, 1000 by default.
	Value float64 `json:"value" yaml:"value" toml:"value"`

	// Period and Band configure the SMA scorer, 30 and 0.01 by default.
	Period int     `json:"period" yaml:"period" toml:"period"`
	Band   float64 `json:"band" yaml:"band" toml:"band"`

	// Fast and Slow are the EMA cross periods, 10 and 30 by default.
	Fast int `json:"fast" yaml:"fast" toml:"fast"`
	Slow int `json:"slow" yaml:"slow" toml:"slow"`

	// TakeProfit and StopLoss are distances from the open price as a
	// fraction, 0.05 for 5%. Zero sets no level.
	TakeProfit float64 `json:"take-profit" yaml:"take-profit" toml:"take-profit"`
	StopLoss   float64 `json:"stop-loss" yaml:"stop-loss" toml:"stop-loss"`

	// Risk limits the threshold decider's opens and, with RiskPct and a
	// stop-loss, sizes them from the stop.
	Risk risk.Policy `json:"risk" yaml:"risk" toml:"risk"`
}

// Hooks is a built strategy: the factories a portfolio installs.
type Hooks struct {
	Scorer  portfolio.ScorerFactory
	Decider portfolio.DeciderFactory
}

// Options returns the portfolio options installing h.
func (h Hooks) Options() []portfolio.Option {
	var opts []portfolio.Option
	if h.Scorer != nil {
		opts = append(opts, portfolio.WithScorer(h.Scorer))
	}
	if h.Decider != nil {
		opts = append(opts, portfolio.WithDecider(h.Decider))
	}
	return opts
}

type Builder func(Params) (Hooks, error)

type Registry map[string]Builder

var registry = Registry{
	"noop":          buildNoop,
	"open-once":     buildOpenOnce,
	"sma-threshold": buildSMAThreshold,
	"ema-cross":     buildEMACross,
}

// Register adds or replaces a strategy in the default registry.
func Register(name string, b Builder) {
	registry.Register(name, b)
}

// Build builds a strategy from the default registry.
func Build(name string, p Params) (Hooks, error) {
	return registry.Build(name, p)
}

// Names lists the strategies in the default registry.
func Names() []string {
	return registry.Names()
}

func (r Registry) Register(name string, b Builder) {
	r[normalize(name)] = b
}

func (r Registry) Build(name string, p Params) (Hooks, error) {
	b, ok := r[normalize(name)]
	if !ok {
		return Hooks{}, fmt.Errorf("%w %q (supported: %s)", ErrUnknownStrategy, name, strings.Join(r.Names(), ", "))
	}
	h, err := b(p)
	if err != nil {
		return Hooks{}, fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return "noop"
	}
	return name
}

func buildNoop(Params) (Hooks, error) {
	return Hooks{Scorer: NewNoopScorer, Decider: NewNoopDecider}, nil
}

func buildOpenOnce(p Params) (Hooks, error) {
	if len(p.Symbols) != 1 {
		return Hooks{}, fmt.Errorf("needs exactly one symbol, got %d", len(p.Symbols))
	}
	if p.Size == 0 {
		return Hooks{}, portfolio.ErrZeroSize
	}
	side := portfolio.Long
	if p.Size < 0 {
		side = portfolio.Short
	}
	tp, sl := exits(side, p.TakeProfit, p.StopLoss)
	return Hooks{Decider: OpenOnce(p.Symbols[0], p.Size, tp, sl)}, nil
}

func buildSMAThreshold(p Params) (Hooks, error) {
	if len(p.Symbols) == 0 {
		return Hooks{}, errors.New("no symbols")
	}
	if p.Period == 0 {
		p.Period = 30
	}
	if p.Band == 0 {
		p.Band = 0.01
	}
	if p.Period < 1 || p.Band < 0 {
		return Hooks{}, fmt.Errorf("period %d band %g", p.Period, p.Band)
	}
	d, err := threshold(p)
	if err != nil {
		return Hooks{}, err
	}
	return Hooks{Scorer: SMA(p.Symbols, p.Period, p.Band), Decider: d}, nil
}

func buildEMACross(p Params) (Hooks, error) {
	if len(p.Symbols) == 0 {
		return Hooks{}, errors.New("no symbols")
	}
	if p.Fast == 0 {
		p.Fast = 10
	}
	if p.Slow == 0 {
		p.Slow = 30
	}
	if p.Fast < 1 || p.Slow <= p.Fast {
		return Hooks{}, fmt.Errorf("fast %d must be positive and below slow %d", p.Fast, p.Slow)
	}
	d, err := threshold(p)
	if err != nil {
		return Hooks{}, err
	}
	return Hooks{Scorer: EMACross(p.Symbols, p.Fast, p.Slow), Decider: d}, nil
}

func threshold(p Params) (portfolio.DeciderFactory, error) {
	if p.Value == 0 {
		p.Value = 1000
	}
	value, err := money.FromFloatE(p.Value)
	if err != nil {
		return nil, err
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", value)
	}
	if p.TakeProfit < 0 || p.TakeProfit >= 1 || p.StopLoss < 0 || p.StopLoss >= 1 {
		return nil, fmt.Errorf("take-profit %g and stop-loss %g must be in [0, 1)", p.TakeProfit, p.StopLoss)
	}
	if r := p.Risk; r.RiskPct < 0 || r.RiskPct >= 1 || r.MaxRiskPct < 0 || r.MinRR < 0 || r.MaxOpenPositions < 0 || r.MaxExposurePct < 0 {
		return nil, fmt.Errorf("invalid risk policy %+v", r)
	}
	if p.Risk.RiskPct > 0 && p.StopLoss == 0 {
		return nil, errors.New("risk sizing needs a stop-loss")
	}
	return ThresholdWithPolicy(value, p.TakeProfit, p.StopLoss, p.Risk), nil
}

// exits turns fractional distances into thresholds on the side's profit and
// loss directions.
func exits(side portfolio.Side, tp, sl float64) (take, stop *portfolio.Threshold) {
	dir := float64(side)
	if tp > 0 {
		take = portfolio.AtPercent(1 + dir*tp)
	}
	if sl > 0 {
		stop = portfolio.AtPercent(1 - dir*sl)
	}
	return take, stop
}
