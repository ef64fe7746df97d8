// Package fixedpoint represents monetary amounts as integers scaled by
// 10^4, giving four decimal digits of precision without floating-point
// drift under repeated addition and subtraction. Conversion to and from
// decimal form happens only at the system boundary; everything inside the
// engine computes on the scaled integer.
package fixedpoint

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by an Amount.
const Scale = 4

// factor is 10^Scale.
var factor = decimal.New(1, Scale)

// Amount is a non-negative monetary quantity scaled by 10^4.
// Non-negativity is an invariant maintained by the ledger, not a type
// property; keeping the representation signed makes underflow visible
// instead of wrapping.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// FromDecimal converts a decimal quantity to its fixed-point form,
// truncating (not rounding) any digits beyond the fourth decimal place.
// Negative quantities are rejected.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Zero, fmt.Errorf("amount must not be negative: %s", d)
	}
	return Amount(d.Mul(factor).IntPart()), nil
}

// FromString parses a decimal string into its fixed-point form.
func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Decimal converts the amount back to its decimal representation.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String renders the amount with exactly four decimal places.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}
