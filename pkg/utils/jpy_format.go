// Package utils provides common utility functions for kabuai.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// FormatJPY formats an amount in yen with thousands separators (¥1,234,567).
// Fractions are kept to two places only when present.
func FormatJPY(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	d := decimal.NewFromFloat(amount).Round(2)
	intPart := d.Truncate(0)
	frac := d.Sub(intPart)

	formatted := groupThousands(intPart.String())
	if !frac.IsZero() {
		formatted += strings.TrimPrefix(frac.StringFixed(2), "0")
	}

	if negative {
		return "-¥" + formatted
	}
	return "¥" + formatted
}

// FormatJPYCompact formats an amount using Japanese large-number units.
// e.g., 1.5e12 → "¥1.50兆", 2.34e10 → "¥234.00億", 56000 → "¥5.60万"
func FormatJPYCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	prefix := "¥"
	if negative {
		prefix = "-¥"
	}

	switch {
	case amount >= 1e12:
		return fmt.Sprintf("%s%.2f兆", prefix, amount/1e12)
	case amount >= 1e8:
		return fmt.Sprintf("%s%s億", prefix, formatWithDecimals(amount/1e8))
	case amount >= 1e4:
		return fmt.Sprintf("%s%.2f万", prefix, amount/1e4)
	default:
		return fmt.Sprintf("%s%.0f", prefix, amount)
	}
}

// FormatNullJPY formats an optional amount, rendering missing values as "n/a".
func FormatNullJPY(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return FormatJPYCompact(v.Float64)
}

// FormatNullPct formats an optional percentage value ("12.34%" or "n/a").
func FormatNullPct(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v.Float64)
}

// FormatNullRatio formats an optional ratio with two decimals ("14.00" or "n/a").
func FormatNullRatio(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round2Null rounds a valid optional value and leaves a missing one untouched.
func Round2Null(v null.Float) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(Round2(v.Float64))
}

func formatWithDecimals(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	intPart := d.Truncate(0)
	return groupThousands(intPart.String()) + strings.TrimPrefix(d.Sub(intPart).StringFixed(2), "0")
}

// groupThousands inserts commas into a string of digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
