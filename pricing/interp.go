// Package pricing turns sparse per-day price bars into a price for every
// simulation tick.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rustyeddy/backtester/market"
)

var ErrTooFewPoints = errors.New("interpolation needs at least two distinct samples")

// Extrapolation selects how values outside the sampled range are produced.
type Extrapolation int

const (
	// Linear extends the first and last segments.
	Linear Extrapolation = iota
	// Flat holds the first and last sampled values.
	Flat
)

func (e Extrapolation) String() string {
	if e == Flat {
		return "flat"
	}
	return "linear"
}

// ParseExtrapolation maps "linear" and "flat" to their modes.
func ParseExtrapolation(s string) (Extrapolation, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "flat":
		return Flat, nil
	}
	return Linear, fmt.Errorf("unknown extrapolation %q (linear, flat)", s)
}

// Interpolator is a piecewise linear function over ascending x samples.
type Interpolator struct {
	xs   []float64
	ys   []float64
	mode Extrapolation
}

// NewInterpolator sorts the samples by x. When two samples share an x the
// later one wins.
func NewInterpolator(xs, ys []float64, mode Extrapolation) (*Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolation: %d x values for %d y values", len(xs), len(ys))
	}

	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ip := &Interpolator{mode: mode}
	for _, i := range idx {
		n := len(ip.xs)
		if n > 0 && ip.xs[n-1] == xs[i] {
			ip.ys[n-1] = ys[i]
			continue
		}
		ip.xs = append(ip.xs, xs[i])
		ip.ys = append(ip.ys, ys[i])
	}
	if len(ip.xs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(ip.xs))
	}
	return ip, nil
}

// FromBars uses minutes since the session open as x and the bar close as y.
func FromBars(s market.Session, bars []market.Bar, mode Extrapolation) (*Interpolator, error) {
	xs := make([]float64, 0, len(bars))
	ys := make([]float64, 0, len(bars))
	for _, b := range bars {
		if !s.Contains(b.Time) {
			continue
		}
		xs = append(xs, s.MinuteOf(b.Time))
		ys = append(ys, b.Close)
	}
	return NewInterpolator(xs, ys, mode)
}

// At evaluates the function at x.
func (ip *Interpolator) At(x float64) float64 {
	n := len(ip.xs)
	switch {
	case x <= ip.xs[0]:
		if ip.mode == Flat {
			return ip.ys[0]
		}
		return ip.segment(0, x)
	case x >= ip.xs[n-1]:
		if ip.mode == Flat {
			return ip.ys[n-1]
		}
		return ip.segment(n-2, x)
	}
	// first index with xs[i] >= x
	i := sort.SearchFloat64s(ip.xs, x)
	if ip.xs[i] == x {
		return ip.ys[i]
	}
	return ip.segment(i-1, x)
}

func (ip *Interpolator) segment(i int, x float64) float64 {
	x0, x1 := ip.xs[i], ip.xs[i+1]
	y0, y1 := ip.ys[i], ip.ys[i+1]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Len is the number of distinct samples.
func (ip *Interpolator) Len() int { return len(ip.xs) }
