package journal

import (
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/rustyeddy/backtester/money"
)

// Report summarizes one portfolio's run: its final ledger and closed-position
// log.
type Report struct {
	Portfolio string
	Start     time.Time
	End       time.Time

	StartValue money.Money
	Cash       money.Money
	Equity     money.Money
	Margin     money.Money
	NettGain   money.Money

	Trades     []TradeRecord
	Wins       int
	Losses     int
	Commission money.Money
	ByReason   map[string]int

	ReturnPct   float64
	WinRate     float64
	MaxDDPct    float64
	GrossProfit money.Money
	GrossLoss   money.Money
}

// NewReport builds a report from a portfolio's snapshots, oldest first, and
// its trades. The last snapshot is taken as the final ledger.
func NewReport(portfolio string, snaps []EquitySnapshot, trades []TradeRecord) Report {
	r := Report{
		Portfolio: portfolio,
		Trades:    trades,
		ByReason:  make(map[string]int),
	}
	if n := len(snaps); n > 0 {
		first, last := snaps[0], snaps[n-1]
		r.Start = first.Time
		r.End = last.Time
		r.StartValue = last.StartValue
		r.Cash = last.Cash
		r.Equity = last.Equity
		r.Margin = last.Margin
		r.NettGain = last.NettGain
		if !r.StartValue.IsZero() {
			r.ReturnPct = r.NettGain.Ratio(r.StartValue) * 100
		}
		r.MaxDDPct = maxDrawdown(snaps) * 100
	}

	for _, t := range trades {
		r.Commission = r.Commission.Add(t.Commission)
		r.ByReason[t.Reason]++
		switch {
		case t.Gain.Sign() > 0:
			r.Wins++
			r.GrossProfit = r.GrossProfit.Add(t.Gain)
		case t.Gain.Sign() < 0:
			r.Losses++
			r.GrossLoss = r.GrossLoss.Add(t.Gain.Abs())
		}
	}
	if len(trades) > 0 {
		r.WinRate = float64(r.Wins) / float64(len(trades))
	}
	return r
}

// ProfitFactor is gross profit over gross loss, 0 without losses.
func (r Report) ProfitFactor() float64 {
	if r.GrossLoss.IsZero() {
		return 0
	}
	return r.GrossProfit.Ratio(r.GrossLoss)
}

// Reasons lists close reasons in name order.
func (r Report) Reasons() []string {
	out := make([]string, 0, len(r.ByReason))
	for k := range r.ByReason {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// maxDrawdown is the largest peak-to-trough fall of cash+equity as a fraction
// of the peak.
func maxDrawdown(snaps []EquitySnapshot) float64 {
	var peak, dd float64
	for _, s := range snaps {
		v := s.Margin.Float64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if d := (peak - v) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
	"org": FormatTradeOrg,
}

var (
	textTmpl = template.Must(template.New("text").Funcs(reportFuncs).Parse(TextTemplate))
	orgTmpl  = template.Must(template.New("org").Funcs(reportFuncs).Parse(OrgTemplate))
)

func (r Report) WriteText(w io.Writer) error { return textTmpl.Execute(w, r) }

func (r Report) WriteOrg(w io.Writer) error { return orgTmpl.Execute(w, r) }

const TextTemplate = `portfolio {{.Portfolio}}  {{date .Start}} -> {{date .End}}
  start value  {{.StartValue}}
  cash         {{.Cash}}
  equity       {{.Equity}}
  margin       {{.Margin}}
  nett gain    {{.NettGain}} ({{printf "%.2f" .ReturnPct}}%)
  max drawdown {{printf "%.2f" .MaxDDPct}}%
  commission   {{.Commission}}
  trades       {{len .Trades}} (wins {{.Wins}}, losses {{.Losses}}, win rate {{printf "%.2f" (mul100 .WinRate)}}%)
{{- range .Trades}}
  {{.Symbol}}	{{.Side}}	{{.Size}}	{{.OpenPrice}} @ {{date .OpenTime}} -> {{.ClosePrice}} @ {{date .CloseTime}}	gain {{.Gain}}	commission {{.Commission}}	{{.Reason}}
{{- end}}
`

const OrgTemplate = `* BACKTEST: {{.Portfolio}}
:PROPERTIES:
:PORTFOLIO:   {{.Portfolio}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_VAL:   {{.StartValue}}
:CASH:        {{.Cash}}
:EQUITY:      {{.Equity}}
:MARGIN:      {{.Margin}}
:NETT_GAIN:   {{.NettGain}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{len .Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}-{{end}}
:COMMISSION:  {{.Commission}}
:END:

** Close Reasons
| Reason | Count |
|--------+-------|
{{- range $reason := .Reasons}}
| {{$reason}} | {{index $.ByReason $reason}} |
{{- end}}

** Trades
{{range .Trades}}
{{org .}}
{{- end}}
`
