package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTradeOrg renders a closed position as an Org-mode heading with its
// facts in a PROPERTIES drawer.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)\n", strings.ToUpper(t.Side), t.Symbol, shortID(t.PositionID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.PositionID)
	if t.RunID != "" {
		fmt.Fprintf(&b, ":RUN: %s\n", t.RunID)
	}
	fmt.Fprintf(&b, ":PORTFOLIO: %s\n", t.Portfolio)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIZE: %s\n", strconv.FormatFloat(t.Size, 'f', -1, 64))
	fmt.Fprintf(&b, ":OPEN_PRICE: %s\n", t.OpenPrice)
	fmt.Fprintf(&b, ":CLOSE_PRICE: %s\n", t.ClosePrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":GAIN: %s\n", t.Gain)
	fmt.Fprintf(&b, ":COMMISSION: %s\n", t.Commission)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
