package fixedpoint

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"0", 0},
		{"1", 10000},
		{"1.0", 10000},
		{"0.5", 5000},
		{"2.7182", 27182},
		{"0.0001", 1},
		// digits beyond the fourth decimal place are truncated, not rounded
		{"1.23456", 12345},
		{"0.99999", 9999},
	}

	for _, tt := range tests {
		got, err := FromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFromStringRejectsNegative(t *testing.T) {
	_, err := FromString("-1.5")
	assert.Error(t, err)
}

func TestFromStringRejectsGarbage(t *testing.T) {
	_, err := FromString("one point five")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	// fixed-point -> decimal -> fixed-point must be the identity
	for _, a := range []Amount{0, 1, 5000, 10000, 12345, 99999999} {
		d := a.Decimal()
		back, err := FromDecimal(d)
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1.0000", Amount(10000).String())
	assert.Equal(t, "0.5000", Amount(5000).String())
	assert.Equal(t, "0.0000", Zero.String())
	assert.Equal(t, "123.4567", Amount(1234567).String())
}

func TestFromDecimalTruncates(t *testing.T) {
	d := decimal.RequireFromString("0.00019")
	a, err := FromDecimal(d)
	require.NoError(t, err)
	assert.Equal(t, Amount(1), a)
}

func TestMin(t *testing.T) {
	assert.Equal(t, Amount(3), Min(3, 7))
	assert.Equal(t, Amount(3), Min(7, 3))
	assert.Equal(t, Zero, Min(0, 0))
}
