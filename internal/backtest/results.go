package backtest

import (
	"fmt"
	"io"
	"time"
)

// PrintResult writes a run header and the text report of every portfolio.
func PrintResult(w io.Writer, r *Result) error {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Sessions:      %d\n", r.Days)
	fmt.Fprintf(w, "Ticks:         %d\n", r.Ticks)
	fmt.Fprintf(w, "Price loads:   %d (%d absent lookups)\n", r.Cache.Loads, r.Cache.Absent)
	fmt.Fprintln(w)

	for _, rep := range r.Reports {
		fmt.Fprintln(w, "--------------------------------------------------")
		if err := rep.WriteText(w); err != nil {
			return err
		}
	}
	return nil
}
