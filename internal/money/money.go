// Package money centralizes currency arithmetic policy: amounts are
// decimals rounded to 2 places after every additive operation, and
// comparisons against zero use a one-cent epsilon.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance for currency equality checks (one cent).
var Epsilon = decimal.New(1, -2)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round2 rounds an amount to 2 decimal places (half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Add returns round2(a + b).
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Add(b))
}

// Sub returns round2(a - b).
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Sub(b))
}

// Equal reports whether a and b differ by less than Epsilon. For amounts
// already rounded to 2 places this is exact equality.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// IsZero reports whether d is within Epsilon of zero.
func IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// GreaterThan reports whether a exceeds b by at least Epsilon. For amounts
// already rounded to 2 places this is exact "a > b".
func GreaterThan(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThanOrEqual(Epsilon)
}

// Parse converts a stored 2-decimal string into an amount.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// ParseQuantity parses a bill-line quantity, defaulting to 1 when empty.
// Quantities keep their full precision; only currency amounts round.
func ParseQuantity(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.NewFromInt(1), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing quantity %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for trusted literals in tests and seeds.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats an amount for storage with exactly 2 decimal places.
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}
