package site

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders a price as displayed on the site: two fixed decimals,
// "." thousands groups, "," decimal separator, "R$" prefix.
// 2292.655 becomes "R$2.292,66".
func FormatBRL(value decimal.Decimal) string {
	fixed := value.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	return "R$" + sign + grouped.String() + "," + fracPart
}
