// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing and formatting go through
// shopspring/decimal so that user input like "12,50" never passes through a
// binary float.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a user supplied amount to Money.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted; values are
// rounded half-up to whole cents. Negative amounts are credits and are kept.
// Non-numeric input yields ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("42,50") -> {4250}, nil
//	ParseAmount("12.345") -> {1235}, nil
//	ParseAmount("-12,50") -> {-1250}, nil
//	ParseAmount("abc") -> {}, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseOptionalAmount returns nil for blank input and otherwise behaves like ParseAmount.
func ParseOptionalAmount(s string) (*Money, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	m, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const maxCents = (1<<63 - 1) / 100

// MoneyFromFloat converts a stored REAL column value to cents.
func MoneyFromFloat(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount as a decimal with two places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in euros for the REAL column.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String formats the amount with two decimals, e.g. "42.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
