// Package core provides money parsing and formatting utilities.
//
// Amounts are kept as decimals so that commission sums stay exact; floats
// only appear at the template boundary.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Currency is the symbol prefixed to displayed amounts.
const Currency = "৳"

var ErrInvalidAmount = errors.New("invalid amount")

// Amounts encode as bare JSON numbers. Decoding accepts quoted strings too,
// so snapshots written before this stay readable.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount converts a user-typed number to a decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Sign
// and magnitude are not checked: the ledger records what it is given.
//
// Examples:
//
//	ParseAmount("200")   -> 200
//	ParseAmount("12,5")  -> 12.5
//	ParseAmount("-3.25") -> -3.25
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatMoney renders d with the currency symbol and thousands grouping,
// e.g. "৳12,500" or "-৳3,200.5".
func FormatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().String()

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := Currency + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}
