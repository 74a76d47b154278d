package indicators

import (
	"fmt"
)

// SimpleMA is a streaming simple moving average over a fixed window.
type SimpleMA struct {
	period int
	window []float64
	next   int
	count  int
	sum    float64
}

// NewMA creates a simple moving average over period prices.
func NewMA(period int) *SimpleMA {
	if period < 1 {
		period = 1
	}
	return &SimpleMA{
		period: period,
		window: make([]float64, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	for i := range m.window {
		m.window[i] = 0
	}
	m.next, m.count, m.sum = 0, 0, 0
}

func (m *SimpleMA) Update(price float64) {
	m.sum += price - m.window[m.next]
	m.window[m.next] = price
	m.next = (m.next + 1) % m.period
	if m.count < m.period {
		m.count++
	}
}

func (m *SimpleMA) Ready() bool {
	return m.count >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(m.period)
}

// ExponentialMA is a streaming exponential moving average seeded with the
// simple average of its first period prices.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates an exponential moving average with the given period.
func NewEMA(period int) *ExponentialMA {
	if period < 1 {
		period = 1
	}
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(price float64) {
	if e.count < e.period {
		e.warmupSum += price
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (price-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// New builds an indicator by kind ("sma" or "ema").
func New(kind string, period int) (Indicator, error) {
	if period < 1 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	switch kind {
	case "sma", "ma", "":
		return NewMA(period), nil
	case "ema":
		return NewEMA(period), nil
	}
	return nil, fmt.Errorf("unknown indicator %q (sma, ema)", kind)
}
