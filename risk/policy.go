// Package risk sizes positions by capital at risk and checks planned opens
// against a policy.
package risk

import (
	"github.com/rustyeddy/backtester/money"
)

// Policy limits what a strategy may open. Zero fields are not checked.
type Policy struct {
	// RiskPct is the share of margin put at risk by one position when it
	// is sized from its stop, 0.005 for half a percent.
	RiskPct float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty" toml:"risk_pct,omitempty"`

	MaxRiskPct       float64 `json:"max_risk_pct,omitempty" yaml:"max_risk_pct,omitempty" toml:"max_risk_pct,omitempty"`
	MinRR            float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty" toml:"min_rr,omitempty"`
	MaxOpenPositions int     `json:"max_open,omitempty" yaml:"max_open,omitempty" toml:"max_open,omitempty"`

	// MaxExposurePct caps gross open value, the new position included, as
	// a share of margin.
	MaxExposurePct float64 `json:"max_exposure_pct,omitempty" yaml:"max_exposure_pct,omitempty" toml:"max_exposure_pct,omitempty"`
}

// Intent is a position a strategy wants to open. Zero Stop or TakeProfit
// means no level.
type Intent struct {
	Symbol     string
	Size       float64
	Entry      money.Money
	Stop       money.Money
	TakeProfit money.Money
}

// Account is the ledger the intent is checked against.
type Account struct {
	Margin   money.Money
	Exposure money.Money
	Open     int
}
