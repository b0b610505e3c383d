// Package core holds the portfolio model, the aggregator and the daily projector.
//
// Amounts are carried as float64 through every calculation. Decimal arithmetic
// is only used at the edges, to parse user input and to round for display.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "EUR"

// ParseAmount converts a user supplied decimal string to a float.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, as are
// a leading sign and surrounding whitespace. Negative values are allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-500")   -> -500, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// FormatAmount renders v in the given currency, rounded to the currency's minor unit.
func FormatAmount(v float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v %s", v, currency)
	}
	// money.New never returns a nil currency, unknown codes get a generic formatter.
	cur := money.New(0, currency).Currency()
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		// go-money counts minor units in an int64.
		return fmt.Sprintf("%s %s", decimal.NewFromFloat(v).StringFixed(int32(cur.Fraction)), currency)
	}
	return cur.Formatter().Format(minor.IntPart())
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// FormatPercent renders a percentage with two decimals, e.g. "3.50%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
