package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFromFloatRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int64
	}{
		{1, 100},
		{1.0, 100},
		{1.000001, 100},
		{1.379, 138},
		{1.371, 137},
		{1.375, 138},
		{1.005, 101},
		{2.1234, 212},
		{-1.375, -138},
		{-0.004, 0},
		{100000, 10_000_000},
	}

	for _, tt := range tests {
		got := FromFloat(tt.in)
		assert.Equal(t, tt.want, got.Cents(), "FromFloat(%v)", tt.in)
	}
}

func TestFromFloatRejectsNonNumeric(t *testing.T) {
	t.Parallel()

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FromFloatE(f)
		assert.ErrorIs(t, err, ErrNotNumeric)
	}
	assert.Panics(t, func() { FromFloat(math.NaN()) })
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse(" 1234.567 ")
	require.NoError(t, err)
	assert.Equal(t, int64(123457), m.Cents())

	m, err = Parse("-3")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), m.Cents())

	_, err = Parse("abc")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	m1 := FromFloat(4)
	m2 := FromFloat(3)

	assert.Equal(t, FromFloat(7), m1.Add(m2))
	assert.Equal(t, FromFloat(1), m1.Sub(m2))
	assert.Equal(t, FromFloat(-4), m1.Neg())
	assert.Equal(t, FromFloat(4), m1.Neg().Abs())

	assert.Equal(t, FromFloat(2), m1.Div(2))
	assert.Equal(t, FromFloat(1.5), m2.Div(2))
	assert.Equal(t, FromFloat(1.33), m1.Div(3))
	assert.Equal(t, FromFloat(10), m1.Mul(2.5))
	assert.Equal(t, FromFloat(9.33), m1.Mul(2.3333333))
	assert.InDelta(t, 4.0/3.0, m1.Ratio(m2), 1e-12)

	assert.Panics(t, func() { m1.Div(0) })
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := FromCents(100)
	b := FromCents(101)

	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 0, a.Cmp(FromFloat(1)))
	assert.Equal(t, 1, a.Sign())
	assert.Equal(t, -1, a.Neg().Sign())
	assert.Equal(t, 0, Zero.Sign())
	assert.True(t, Zero.IsZero())
}

func TestStringAndJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.38", FromFloat(1.379).String())
	assert.Equal(t, "-0.05", FromCents(-5).String())
	assert.Equal(t, "0.00", Zero.String())

	b, err := json.Marshal(struct {
		Cash Money `json:"cash"`
	}{FromCents(12345)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cash": 123.45}`, string(b))

	var out struct {
		Cash Money `json:"cash"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cash":"99.999"}`), &out))
	assert.Equal(t, int64(10000), out.Cash.Cents())
}

func TestYAMLAndText(t *testing.T) {
	t.Parallel()

	type ledger struct {
		Cash Money `yaml:"cash"`
	}
	b, err := yaml.Marshal(ledger{Cash: FromCents(-12345)})
	require.NoError(t, err)
	assert.Contains(t, string(b), "-123.45")

	var out ledger
	require.NoError(t, yaml.Unmarshal(b, &out))
	assert.Equal(t, int64(-12345), out.Cash.Cents())

	require.NoError(t, yaml.Unmarshal([]byte("cash: 1.379\n"), &out))
	assert.Equal(t, int64(138), out.Cash.Cents())

	var m Money
	require.NoError(t, m.UnmarshalText([]byte(" 7.5 ")))
	assert.Equal(t, int64(750), m.Cents())
	assert.Error(t, m.UnmarshalText([]byte("seven")))
}

func TestProperty_MoneyIsExact(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("cents round trip", prop.ForAll(
		func(c int64) bool {
			m := FromCents(c)
			return FromCents(m.Cents()) == m
		},
		gen.Int64Range(-1_000_000_000_000, 1_000_000_000_000),
	))

	properties.Property("string round trip", prop.ForAll(
		func(c int64) bool {
			m := FromCents(c)
			p, err := Parse(m.String())
			return err == nil && p == m
		},
		gen.Int64Range(-1_000_000_000_000, 1_000_000_000_000),
	))

	properties.Property("add then sub is identity", prop.ForAll(
		func(a, b int64) bool {
			x, y := FromCents(a), FromCents(b)
			return x.Add(y).Sub(y) == x
		},
		gen.Int64Range(-1_000_000_000, 1_000_000_000),
		gen.Int64Range(-1_000_000_000, 1_000_000_000),
	))

	properties.TestingRun(t)
}
