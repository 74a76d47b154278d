package strategies

import (
	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/portfolio"
)

// SMAScorer tracks a moving average per symbol and signals mean reversion:
// Sell when the price is more than band above its average, Buy when it is
// more than band below. Symbols without a price or a warmed-up average are
// left out of the scores.
type SMAScorer struct {
	q       portfolio.Quoter
	symbols []string
	band    float64
	ma      map[string]*indicators.SimpleMA
}

// SMA returns a factory for an SMAScorer over symbols.
func SMA(symbols []string, period int, band float64) portfolio.ScorerFactory {
	return func(q portfolio.Quoter) portfolio.Scorer {
		s := &SMAScorer{
			q:       q,
			symbols: append([]string(nil), symbols...),
			band:    band,
			ma:      make(map[string]*indicators.SimpleMA, len(symbols)),
		}
		for _, sym := range symbols {
			s.ma[sym] = indicators.NewMA(period)
		}
		return s
	}
}

func (s *SMAScorer) Execute() (map[string]portfolio.Signal, error) {
	scores := make(map[string]portfolio.Signal)
	for _, sym := range s.symbols {
		price, ok := s.q.CurrentPrice(sym)
		if !ok {
			continue
		}
		ma := s.ma[sym]
		ma.Update(price.Float64())
		if !ma.Ready() {
			continue
		}
		avg := ma.Value()
		if avg <= 0 {
			continue
		}
		change := (price.Float64() - avg) / avg
		switch {
		case change > s.band:
			scores[sym] = portfolio.Sell
		case change < -s.band:
			scores[sym] = portfolio.Buy
		}
	}
	return scores, nil
}
