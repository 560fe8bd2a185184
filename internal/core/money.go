// Package core holds the domain model: users, ledger records, calendar
// dates, and exact-decimal money.
//
// Money wraps shopspring/decimal so that sums, percentages, and comparisons
// never touch binary floating point. Amounts are normalized to two decimal
// places with half-up rounding at the parse boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal monetary amount.
type Money struct {
	decimal.Decimal
}

// ZeroMoney is the canonical zero amount.
func ZeroMoney() Money {
	return Money{decimal.Zero}
}

// NewMoney wraps a decimal value as Money.
func NewMoney(d decimal.Decimal) Money {
	return Money{d}
}

// MoneyFromCents builds an amount from an integer number of cents.
// Storage keeps amounts as cents so SQLite sums stay exact.
func MoneyFromCents(cents int64) Money {
	return Money{decimal.New(cents, -2)}
}

// ParseMoney converts a decimal string to Money, rounding half-up to two
// decimal places. A single comma is accepted as the decimal separator when
// no dot is present (12,34); thousands separators and mixed forms like
// "1,234.56" are rejected rather than silently reinterpreted. Returns
// ErrInvalidAmount for malformed input.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35 (rounds up)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			return Money{}, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d.Round(2)}, nil
}

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return m.Decimal.Round(2).Shift(2).IntPart()
}

// ValidatePositive rejects zero and negative amounts. Ledger inputs are
// always strictly positive; derived values like savings may go negative.
func (m Money) ValidatePositive() error {
	if !m.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{m.Decimal.Add(other.Decimal)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{m.Decimal.Sub(other.Decimal)}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Decimal.IsZero()
}

// RoundHalfUp2 rounds a decimal to two places, half away from zero.
// All percentage and average fields in summaries go through this.
func RoundHalfUp2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
