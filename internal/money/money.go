// Package money converts between decimal currency amounts and integer minor
// units (cents) and formats amounts for display.
//
// All ledger arithmetic is done on int64 minor units. shopspring/decimal is
// only used at the edges, where amounts are parsed from or rendered to text.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO 4217 code")
	ErrPrecision       = errors.New("amount is finer than the currency's minor unit")
	ErrOverflow        = errors.New("amount is out of range")
)

// DefaultExponent is used for every currency not listed in exponents.
const DefaultExponent = 2

// exponents lists currencies whose minor unit is not 1/100.
var exponents = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"UGX": 0,
	"VND": 0,
}

var symbols = map[string]string{
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"USD": "$",
	"ZAR": "R",
}

// NormalizeCurrency upper-cases and validates a currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return code, nil
}

// Exponent returns the number of decimal places of the currency's minor unit.
func Exponent(currency string) int32 {
	if exp, ok := exponents[currency]; ok {
		return exp
	}
	return DefaultExponent
}

// ToMinor converts amount into minor units of currency. The amount must be
// representable exactly; 10.005 USD is rejected rather than rounded.
func ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	shifted := amount.Shift(Exponent(currency))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s %s", ErrPrecision, amount.String(), currency)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s %s", ErrOverflow, amount.String(), currency)
	}
	return shifted.IntPart(), nil
}

// AddMinor returns a+b, or ErrOverflow when the sum does not fit in an int64.
func AddMinor(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

// FromMinor converts minor units of currency back to a decimal amount.
func FromMinor(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -Exponent(currency))
}

// Parse reads a decimal amount from text.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// String renders amount with exactly the currency's number of decimal places.
func String(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(Exponent(currency))
}

// Symbol returns the display symbol for currency, or the code followed by a
// space when no symbol is known.
func Symbol(currency string) string {
	if s, ok := symbols[currency]; ok {
		return s
	}
	return currency + " "
}

// Format renders amount for display, e.g. "$12.50" or "-€3.00".
func Format(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + Symbol(currency) + String(amount.Abs(), currency)
}
