// Package money implements an exact fixed-point currency amount.
//
// A Money value is stored as an integer number of minor units (cents). All
// arithmetic between Money values is exact; scaling by a float rounds half
// away from zero to the nearest cent. Conversions from and to floats and
// strings are the only places where rounding happens, and they go through
// shopspring/decimal so that inputs like 1.005 are not mangled by binary
// floating point.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned when a float or string cannot represent an amount.
var ErrNotNumeric = errors.New("money: value is not numeric")

// Money is an amount in cents.
type Money struct {
	cents int64
}

// Zero is 0.00.
var Zero = Money{}

// FromCents builds a Money from minor units.
func FromCents(c int64) Money {
	return Money{cents: c}
}

// FromFloatE rounds f half away from zero at two decimals.
func FromFloatE(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	return fromDecimal(decimal.NewFromFloat(f)), nil
}

// FromFloat is FromFloatE for values known to be finite. It panics on NaN
// or Inf.
func FromFloat(f float64) Money {
	m, err := FromFloatE(f)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse reads a decimal string such as "1234.567" and rounds it to cents.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return fromDecimal(d), nil
}

func fromDecimal(d decimal.Decimal) Money {
	return Money{cents: d.Shift(2).Round(0).IntPart()}
}

func (m Money) decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.cents }

// Float64 is for reporting only; never feed it back into arithmetic.
func (m Money) Float64() float64 {
	return float64(m.cents) / 100
}

func (m Money) String() string {
	return m.decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{cents: m.cents + o.cents} }
func (m Money) Sub(o Money) Money { return Money{cents: m.cents - o.cents} }
func (m Money) Neg() Money        { return Money{cents: -m.cents} }

func (m Money) Abs() Money {
	if m.cents < 0 {
		return m.Neg()
	}
	return m
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	switch {
	case m.cents < 0:
		return -1
	case m.cents > 0:
		return 1
	}
	return 0
}

func (m Money) IsZero() bool { return m.cents == 0 }

// Cmp returns -1, 0 or +1 comparing m with o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.cents < o.cents:
		return -1
	case m.cents > o.cents:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool       { return m.cents == o.cents }
func (m Money) LessThan(o Money) bool    { return m.cents < o.cents }
func (m Money) GreaterThan(o Money) bool { return m.cents > o.cents }

// Mul scales m by f and rounds half away from zero to the cent.
func (m Money) Mul(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Errorf("%w: multiplier %v", ErrNotNumeric, f))
	}
	return fromDecimal(m.decimal().Mul(decimal.NewFromFloat(f)))
}

// Div divides m by f and rounds half away from zero to the cent.
func (m Money) Div(f float64) Money {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Errorf("%w: divisor %v", ErrNotNumeric, f))
	}
	return fromDecimal(m.decimal().DivRound(decimal.NewFromFloat(f), 8))
}

// Ratio returns m / o as a float. o must be non-zero.
func (m Money) Ratio(o Money) float64 {
	return float64(m.cents) / float64(o.cents)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := Parse(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText writes the amount with two decimals. YAML and TOML encoders
// use it.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
