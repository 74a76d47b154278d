package market

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Bar is one raw OHLCV price observation.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceProvider supplies the bars of one symbol for one session. Bars must be
// ascending by time. A symbol or day without data yields an empty slice, not
// an error.
type PriceProvider interface {
	Bars(ctx context.Context, symbol string, s Session) ([]Bar, error)
}

// SortBars orders bars by time, oldest first.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}

// ValidateBars checks that bars are ascending by time.
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Before(bars[i-1].Time) {
			return fmt.Errorf("bar %d at %s is before %s", i,
				bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Within returns the sub-slice of ascending bars inside [s.Open, s.Close].
func Within(bars []Bar, s Session) []Bar {
	lo := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(s.Open)
	})
	hi := sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(s.Close)
	})
	if lo >= hi {
		return nil
	}
	return bars[lo:hi]
}
