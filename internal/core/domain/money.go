package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in integer minor units (e.g. cents).
// All arithmetic on amounts is exact integer arithmetic; floating point
// never touches a financial value.
type Money int64

// moneyExponent is the number of minor-unit digits used when amounts cross
// a serialization boundary (requests, export payloads).
const moneyExponent = 2

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m > 0
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return -m
}

// Decimal converts the minor-unit amount to its decimal representation.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyExponent)
}

// String renders the amount as a decimal string, e.g. 1050 -> "10.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(moneyExponent)
}

// ParseMoney converts a decimal string into minor units. It rejects values
// with more precision than the minor unit allows.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(moneyExponent)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, moneyExponent)
	}
	return Money(shifted.IntPart()), nil
}
