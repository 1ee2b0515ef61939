// Amount formatting for whole-VND integers.
//
// Amounts never carry fractional parts, so the domain uses plain int64
// throughout and formatting is grouping plus the currency marker.
package core

import (
	"strconv"
	"strings"
)

// FormatAmount renders a whole-VND amount with "." thousands grouping and
// the trailing currency marker, e.g. 15000 -> "15.000đ".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	out := b.String() + "đ"
	if neg {
		return "-" + out
	}
	return out
}

// FormatAmountShort renders a compact amount for chart axes: millions as
// "1.5M" (trailing .0 dropped), thousands as "15K", small values verbatim.
func FormatAmountShort(amount int64) string {
	switch {
	case amount >= 1_000_000:
		s := strconv.FormatFloat(float64(amount)/1_000_000, 'f', 1, 64)
		s = strings.TrimSuffix(s, ".0")
		return s + "M"
	case amount >= 1_000:
		return strconv.FormatInt((amount+500)/1_000, 10) + "K"
	default:
		return strconv.FormatInt(amount, 10)
	}
}
