package indicators

import (
	"fmt"
)

// MA calculates the simple moving average of the last period prices.
func MA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("not enough prices: need %d, got %d", period, len(prices))
	}

	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), nil
}

// EMA calculates the exponential moving average of prices, seeded with the
// simple average of the first period prices.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("not enough prices: need %d, got %d", period, len(prices))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for _, p := range prices[:period] {
		sma += p
	}
	ema := sma / float64(period)

	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema, nil
}
