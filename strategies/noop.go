package strategies

import (
	"github.com/rustyeddy/backtester/portfolio"
)

// NoopScorer scores nothing.
type NoopScorer struct{}

func (NoopScorer) Execute() (map[string]portfolio.Signal, error) { return nil, nil }

// NoopDecider does nothing.
type NoopDecider struct{}

func (NoopDecider) Execute(map[string]portfolio.Signal) error { return nil }

func NewNoopScorer(portfolio.Quoter) portfolio.Scorer       { return NoopScorer{} }
func NewNoopDecider(*portfolio.Portfolio) portfolio.Decider { return NoopDecider{} }
