package risk

import (
	"fmt"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate checks in against p for an account in the state acct.
func Evaluate(p Policy, in Intent, acct Account) Decision {
	d := Decision{Allowed: true}

	if in.Size == 0 {
		d.add("NO_SIZE", "size must be non-zero")
		return d
	}
	if in.Entry.Sign() <= 0 {
		d.add("NO_ENTRY", "entry must be set")
		return d
	}

	if !in.Stop.IsZero() {
		planned := PlannedRisk(in.Size, in.Entry, in.Stop)
		d.PlannedRisk = planned.Float64()
		d.PlannedRiskPct = RiskPct(planned, acct.Margin)
		if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
			d.add("RISK_TOO_HIGH",
				fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
					100*d.PlannedRiskPct, 100*p.MaxRiskPct))
		}
		if !in.TakeProfit.IsZero() {
			d.PlannedRR = RR(in.Entry, in.Stop, in.TakeProfit)
		}
	}
	if p.MinRR > 0 && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}

	if p.MaxOpenPositions > 0 && acct.Open >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", acct.Open, p.MaxOpenPositions))
	}

	if p.MaxExposurePct > 0 {
		gross := acct.Exposure.Add(in.Entry.Mul(in.Size).Abs())
		pct := RiskPct(gross, acct.Margin)
		if pct > p.MaxExposurePct {
			d.add("EXPOSURE_TOO_HIGH",
				fmt.Sprintf("exposure %.2f%% exceeds max %.2f%%", 100*pct, 100*p.MaxExposurePct))
		}
	}
	return d
}
