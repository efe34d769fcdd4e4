// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing dollar amounts typed into the
// console and rendering balances back for display.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered dollar amount to a decimal.
//
// It accepts an optional leading "$" and comma thousands separators and
// rounds half away from zero to cents. Returns ErrInvalidAmount for empty,
// signed, malformed or zero values.
//
// Examples:
//
//	ParseAmount("100")       -> 100, nil
//	ParseAmount("$1,000.50") -> 1000.5, nil
//	ParseAmount("12.345")    -> 12.35, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatUSD renders an amount as "$1,000" or "$1,000.50".
// Whole-dollar amounts omit the cents.
func FormatUSD(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs().Round(2)
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()

	s := "$" + groupThousands(whole.String())
	if cents != 0 {
		s += fmt.Sprintf(".%02d", cents)
	}
	if neg {
		return "-" + s
	}
	return s
}

// Percent returns amount * pct / 100 rounded to whole dollars.
func Percent(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(0)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
