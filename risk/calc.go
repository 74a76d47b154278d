package risk

import (
	"math"

	"github.com/rustyeddy/backtester/money"
)

// PlannedRisk is what size loses if the stop is hit.
func PlannedRisk(size float64, entry, stop money.Money) money.Money {
	return entry.Sub(stop).Abs().Mul(math.Abs(size))
}

// RR is reward over risk for the planned levels, 0 without risk.
func RR(entry, stop, takeProfit money.Money) float64 {
	risk := entry.Sub(stop).Abs()
	if risk.IsZero() {
		return 0
	}
	return takeProfit.Sub(entry).Abs().Ratio(risk)
}

// RiskPct is planned risk over capital, +Inf without capital.
func RiskPct(planned, capital money.Money) float64 {
	if capital.Sign() <= 0 {
		return math.Inf(1)
	}
	return planned.Ratio(capital)
}

// Size returns the whole number of shares that loses riskPct of capital
// when price moves from entry to stop, and the amount at risk.
func Size(capital money.Money, riskPct float64, entry, stop money.Money) (float64, money.Money) {
	amount := capital.Mul(riskPct)
	perShare := entry.Sub(stop).Abs()
	if perShare.IsZero() || amount.Sign() <= 0 {
		return 0, money.Zero
	}
	return math.Floor(amount.Ratio(perShare)), amount
}
