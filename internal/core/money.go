// Package core provides the ledger domain types.
//
// This file contains the decimal-backed Money type used for account
// balances and transaction amounts, and its conversion to the integer sen
// representation used in storage.
package core

import "github.com/shopspring/decimal"

// Money is a signed ringgit amount. Arithmetic keeps full precision;
// rounding to sen happens only in Rounded, Cents and the string forms.
type Money struct {
	Amount decimal.Decimal
}

// MoneyFromInt returns a whole ringgit amount.
func MoneyFromInt(v int64) Money {
	return Money{Amount: decimal.NewFromInt(v)}
}

// MoneyFromCents converts an integer sen value (as stored in SQLite) to Money.
func MoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount)} }
func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount)} }
func (m Money) Neg() Money        { return Money{Amount: m.Amount.Neg()} }

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// Equal compares by value, so 1.5 equals 1.50.
func (m Money) Equal(o Money) bool { return m.Amount.Equal(o.Amount) }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.Amount.Cmp(o.Amount) }

// Rounded returns m rounded half-up to sen.
func (m Money) Rounded() Money {
	return Money{Amount: m.Amount.Round(2)}
}

// Cents returns the amount in sen, rounded half-up.
func (m Money) Cents() int64 {
	return m.Amount.Round(2).Shift(2).IntPart()
}

// String returns the plain two-decimal form, e.g. "1234.50".
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// MarshalJSON renders the rounded amount as a JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	m.Amount = d
	return nil
}
