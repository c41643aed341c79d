// Package money provides a fixed-precision amount type for the ledger.
//
// Amounts are stored as signed integer minor units (cents). All arithmetic
// and comparisons happen on minor units; decimal strings are only ever a
// parse/format concern, handled by shopspring/decimal. Binary floating point
// never touches a persisted amount.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). It is signed: balance
// computations use negative values for "self owes".
type Money int64

// Zero is the additive identity.
const Zero Money = 0

// FromMinorUnits wraps a raw minor-unit count.
func FromMinorUnits(v int64) Money {
	return Money(v)
}

// Parse converts a decimal string such as "12.34" into Money.
// At most two fraction digits are accepted; anything that is not a plain
// decimal number is rejected.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("invalid amount %q: more than two fraction digits", s)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: not representable in cents", s)
	}
	return Money(cents.IntPart()), nil
}

// MustParse is Parse for constants in tests; it panics on error.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MinorUnits returns the raw cent count.
func (m Money) MinorUnits() int64 { return int64(m) }

// Add returns m + other.
func (m Money) Add(other Money) Money { return m + other }

// Sub returns m - other.
func (m Money) Sub(other Money) Money { return m - other }

// Neg returns -m.
func (m Money) Neg() Money { return -m }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Cmp compares m to other: -1 if less, 0 if equal, +1 if greater.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m == 0 }

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool { return m < 0 }

// IsPositive reports whether m is above zero.
func (m Money) IsPositive() bool { return m > 0 }

// Split divides m into n equal integer shares plus a remainder of
// 0..n-1 minor units. The caller decides how the remainder is distributed.
func (m Money) Split(n int) (share Money, remainder Money) {
	if n <= 0 {
		return 0, m
	}
	share = m / Money(n)
	remainder = m % Money(n)
	return share, remainder
}

// String renders m with exactly two fraction digits, e.g. "33.34".
func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// MarshalJSON renders the amount as a decimal string ("12.34") so that no
// consumer is tempted to do float arithmetic on it.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
// Older payloads stored numbers; both forms go through decimal parsing.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare number: parse the raw token as a decimal literal.
		s = string(data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
