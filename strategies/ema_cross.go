package strategies

import (
	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/portfolio"
)

// EMACrossScorer follows the trend of each symbol with a fast/slow EMA pair.
// It signals Buy on the tick the fast average crosses above the slow one and
// Sell on the tick it crosses below. No score otherwise.
type EMACrossScorer struct {
	q       portfolio.Quoter
	symbols []string
	lines   map[string]*crossLines
}

type crossLines struct {
	fast, slow   *indicators.ExponentialMA
	lastDiff     float64
	haveLastDiff bool
}

// EMACross returns a factory for an EMACrossScorer over symbols.
func EMACross(symbols []string, fast, slow int) portfolio.ScorerFactory {
	return func(q portfolio.Quoter) portfolio.Scorer {
		s := &EMACrossScorer{
			q:       q,
			symbols: append([]string(nil), symbols...),
			lines:   make(map[string]*crossLines, len(symbols)),
		}
		for _, sym := range symbols {
			s.lines[sym] = &crossLines{
				fast: indicators.NewEMA(fast),
				slow: indicators.NewEMA(slow),
			}
		}
		return s
	}
}

func (s *EMACrossScorer) Execute() (map[string]portfolio.Signal, error) {
	scores := make(map[string]portfolio.Signal)
	for _, sym := range s.symbols {
		price, ok := s.q.CurrentPrice(sym)
		if !ok {
			continue
		}
		if sig, ok := s.lines[sym].update(price.Float64()); ok {
			scores[sym] = sig
		}
	}
	return scores, nil
}

func (l *crossLines) update(price float64) (portfolio.Signal, bool) {
	l.fast.Update(price)
	l.slow.Update(price)
	if !l.fast.Ready() || !l.slow.Ready() {
		return portfolio.Hold, false
	}

	diff := l.fast.Value() - l.slow.Value()
	if !l.haveLastDiff {
		l.lastDiff = diff
		l.haveLastDiff = true
		return portfolio.Hold, false
	}

	bull := diff > 0 && l.lastDiff <= 0
	bear := diff < 0 && l.lastDiff >= 0
	l.lastDiff = diff

	switch {
	case bull:
		return portfolio.Buy, true
	case bear:
		return portfolio.Sell, true
	}
	return portfolio.Hold, false
}
