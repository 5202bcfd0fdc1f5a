// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing, JSON encoding and divisions
// go through shopspring/decimal so no float rounding ever reaches a stored
// value.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "$"

// Money is an amount in cents. Negative values only appear in derived
// figures such as a balance.
type Money struct {
	Cents int64
}

// maxUnits is the largest amount, in currency units, that fits in Cents.
var maxUnits = decimal.NewFromInt(math.MaxInt64).Shift(-2)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Cents builds a Money value.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative and malformed values are rejected, zero is accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal rounds a decimal to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThan(maxUnits) {
		return Money{}, fmt.Errorf("%w: amount %s out of range", ErrInvalidAmount, d.String())
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// DivRound divides the amount by n and rounds half-up to the cent.
// Division by zero yields zero.
func (m Money) DivRound(n int) Money {
	if n == 0 {
		return Money{}
	}
	q := decimal.NewFromInt(m.Cents).Div(decimal.NewFromInt(int64(n))).Round(0)
	return Money{Cents: q.IntPart()}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount with a currency symbol and thousands
// separators, e.g. "-$1,234.50".
func (m Money) Format(symbol string) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, humanize.Comma(cents/100), cents%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Negative values
// decode, since stored balances may be negative; user input goes through
// ParseAmount.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
	}
	v, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
