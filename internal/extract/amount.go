package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyTokens = []string{"USD", "EUR", "GBP", "CAD", "AUD", "INR", "$", "€", "£"}

// ParseAmount parses a money-ish token such as "$1,195.00", "1.195,00", "(5.00)" or "2".
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	for _, c := range currencyTokens {
		s = strings.ReplaceAll(s, c, "")
		s = strings.ReplaceAll(s, strings.ToLower(c), "")
	}
	s = strings.ReplaceAll(s, " ", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return decimal.Zero, fmt.Errorf("parse amount %q: empty", raw)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.195,00
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,195.00
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// parseFloat is ParseAmount narrowed to float64 for the result model.
func parseFloat(s string) (float64, bool) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
