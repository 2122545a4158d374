// Package format converts between display strings (grouped numbers,
// currency, percentages) and numeric values, and parses spreadsheet cells.
package format

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO code used for display.
const DefaultCurrency = money.USD

// ErrNotANumber is returned when a display string holds no parsable number.
var ErrNotANumber = errors.New("not a number")

// wholeFormatter renders whole currency units with the currency's grapheme and
// separators but without the fraction part.
func wholeFormatter(code string) *money.Formatter {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	return money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
}

// numberFormatter groups thousands with commas and prints no symbol.
var numberFormatter = money.NewFormatter(0, ".", ",", "", "1")

// FormatNumber renders v rounded to a whole number with comma grouping,
// e.g. 1234567.4 -> "1,234,567".
func FormatNumber(v float64) string {
	return numberFormatter.Format(int64(math.Round(v)))
}

// FormatCurrency renders v as whole units of the default currency,
// e.g. 1500000 -> "$1,500,000".
func FormatCurrency(v float64) string {
	return FormatCurrencyIn(v, DefaultCurrency)
}

// FormatCurrencyIn renders v as whole units of the given currency code.
func FormatCurrencyIn(v float64, code string) string {
	return wholeFormatter(code).Format(int64(math.Round(v)))
}

// FormatMillions renders a base-unit amount in millions with one decimal,
// e.g. 2000000 -> "$2.0M".
func FormatMillions(v float64) string {
	m := decimal.NewFromFloat(v).Div(decimal.NewFromInt(1_000_000))
	return "$" + m.StringFixed(1) + "M"
}

// FormatPercent renders p with the given number of decimals and a percent sign.
func FormatPercent(p float64, decimals int32) string {
	return decimal.NewFromFloat(p).StringFixed(decimals) + "%"
}

// ParseNumber parses a display string such as "1,234", "$1,500,000" or
// "12.5%" into a float. Empty input yields 0.
func ParseNumber(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, ok := ParseCell(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return d.InexactFloat64(), nil
}

// ParseAmount parses a display string into an exact decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, ok := ParseCell(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return d, nil
}

// ParseCell interprets a spreadsheet cell value of mixed type. It accepts
// plain numbers, currency-formatted values, thousands separators, trailing
// percent signs, accounting-style negatives "(1,000)" and scientific
// notation. ok is false for empty or non-numeric cells.
func ParseCell(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '€', '£', ' ', '\u00a0', '%':
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
