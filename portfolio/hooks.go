package portfolio

// Signal is a scorer's view of one symbol.
type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Scorer rates the symbol universe once per tick.
type Scorer interface {
	Execute() (map[string]Signal, error)
}

// Decider acts on a tick's scores by opening or closing positions.
type Decider interface {
	Execute(scores map[string]Signal) error
}

// ScorerFactory builds a scorer bound to the market it reads.
type ScorerFactory func(q Quoter) Scorer

// DeciderFactory builds a decider bound to the portfolio it trades.
type DeciderFactory func(p *Portfolio) Decider

type ScorerFunc func() (map[string]Signal, error)

func (f ScorerFunc) Execute() (map[string]Signal, error) { return f() }

type DeciderFunc func(map[string]Signal) error

func (f DeciderFunc) Execute(scores map[string]Signal) error { return f(scores) }
