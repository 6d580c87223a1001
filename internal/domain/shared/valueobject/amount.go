package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// The settlement engine works in a single currency with two-decimal
// precision. Every monetary value entering the domain is canonicalized to
// two decimal places at the parse boundary, and every value leaving it is
// rendered with StringFixed2; nothing in between re-rounds.

// CoverageEpsilon is the sole tolerance in the system: a settlement is
// considered covered when the shortfall is below one cent. It absorbs the
// display rounding of 2-decimal amounts. Do not tighten or loosen it.
var CoverageEpsilon = decimal.New(1, -2) // 0.01

// DeductionTolerance guards the submit-time sum checks against accumulated
// 2-decimal rounding across many deduction lines.
var DeductionTolerance = decimal.New(1, -3) // 0.001

// ParseAmount parses a user-entered amount string into the canonical
// 2-decimal representation. The empty string is not an amount; callers that
// allow blank fields must check for it before parsing.
func ParseAmount(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, errors.New("amount cannot be empty")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// Round2 canonicalizes a computed amount to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// StringFixed2 renders an amount for the wire with exactly two decimals.
func StringFixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NonNegative clamps an amount at zero from below.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Clamp restricts an amount to the inclusive range [lo, hi].
// If hi < lo the lower bound wins.
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if hi.LessThan(lo) {
		hi = lo
	}
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
