// Package core provides the domain types shared by the client engine and the
// reference ledger, together with money and date helpers.
//
// Money is kept in signed integer cents. Conversions to and from the decimal
// text used on the wire go through shopspring/decimal so that no float ever
// touches an amount.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is a signed amount in cents. Positive values are inflows, negative
// values are outflows.
type Money struct {
	Cents int64
}

// Cents builds a Money from a cent count.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// FromDecimal converts a decimal amount to Money, rounding half away from
// zero on the third decimal place.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	default:
		return 0
	}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for ratio computations only.
// Use cents for arithmetic on balances.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount with a dot separator and two decimals ("120.00").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*m = FromDecimal(d)
	return nil
}

// Validate reports whether the amount is usable as a transfer or transaction
// value: it must be strictly positive.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmount converts user-entered text to a positive Money value.
//
// Both "12.34" and "12,34" are accepted. When both separators are present the
// Brazilian grouping is assumed ("1.234,56"). Signs are rejected: the
// direction of a movement comes from its type, never from the typed text.
// The third decimal is rounded half-up.
//
// Examples:
//
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1.005")    -> 1.01
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := FromDecimal(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// FormatBRL formats an amount the way the UI shows it ("R$ 1.234,56").
func FormatBRL(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range reais {
		if i > 0 && (len(reais)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := "R$ " + b.String() + "," + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}
