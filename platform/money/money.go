// Package money holds peso arithmetic helpers shared by quoting, invoicing
// and notifications. Amounts are shopspring decimals; Chilean pesos have no
// minor unit, so display and gateway amounts are whole numbers.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// VATRate is the Chilean IVA.
var VATRate = decimal.RequireFromString("0.19")

var vatFactor = decimal.NewFromInt(1).Add(VATRate)

// Tax returns round(net * 19%) in whole pesos.
func Tax(net decimal.Decimal) decimal.Decimal {
	return net.Mul(VATRate).Round(0)
}

// NetOf backs the net amount out of a gross total, unrounded.
func NetOf(gross decimal.Decimal) decimal.Decimal {
	return gross.DivRound(vatFactor, 8)
}

// Pesos rounds half away from zero to whole pesos.
func Pesos(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Parse reads a user-entered price. Thousands dots and a leading "$" are
// accepted ("$59.500"); a comma is the decimal separator.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ".") > 1 || hasThousandsDot(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	return decimal.NewFromString(s)
}

// hasThousandsDot treats "59.500" as fifty-nine thousand five hundred.
func hasThousandsDot(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && len(s)-i-1 == 3
}

// Thousands formats whole pesos with dot grouping: 59500 -> "59.500".
func Thousands(d decimal.Decimal) string {
	n := Pesos(d)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := decimal.NewFromInt(n).String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// CLP formats an amount as "$59.500".
func CLP(d decimal.Decimal) string {
	return "$" + Thousands(d)
}
