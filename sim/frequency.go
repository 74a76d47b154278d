package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/backtester/market"
)

var ErrInvalidFrequency = errors.New("invalid frequency")

// Frequency decides the cadence of the clock inside one session. Ticks are
// minutes since the session open.
type Frequency interface {
	Name() string
	// Next returns the tick after tick, or false when tick is the last one
	// of session s.
	Next(s market.Session, tick int) (int, bool)
}

// Minute steps one minute at a time. The last tick of a session is one
// minute before the close.
type Minute struct{}

func (Minute) Name() string { return "1minute" }

func (Minute) Next(s market.Session, tick int) (int, bool) {
	return step(s, tick, 1)
}

// Hourly steps sixty minutes from the open.
type Hourly struct{}

func (Hourly) Name() string { return "1hour" }

func (Hourly) Next(s market.Session, tick int) (int, bool) {
	return step(s, tick, 60)
}

// Daily has a single tick per session, at the open.
type Daily struct{}

func (Daily) Name() string { return "daily" }

func (Daily) Next(market.Session, int) (int, bool) { return 0, false }

func step(s market.Session, tick, n int) (int, bool) {
	next := tick + n
	if next >= s.Minutes() {
		return tick, false
	}
	return next, true
}

// ParseFrequency maps a frequency name to its cadence.
func ParseFrequency(name string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "1minute", "minute", "1m":
		return Minute{}, nil
	case "1hour", "hourly", "1h":
		return Hourly{}, nil
	case "daily", "1day", "1d":
		return Daily{}, nil
	}
	return nil, fmt.Errorf("%w %q (supported: 1minute, 1hour, daily)", ErrInvalidFrequency, name)
}
