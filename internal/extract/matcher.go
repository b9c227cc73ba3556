package extract

import (
	"regexp"
	"strings"
)

// Matcher looks for one field in raw text and returns the captured value.
type Matcher func(text string) (string, bool)

// Pattern compiles a case-insensitive matcher that yields the first capture group, trimmed.
func Pattern(expr string) Matcher {
	re := regexp.MustCompile(`(?i)` + expr)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// FirstMatch runs matchers in order and returns the first value found.
func FirstMatch(text string, matchers []Matcher) (string, bool) {
	for _, m := range matchers {
		if v, ok := m(text); ok {
			return v, true
		}
	}
	return "", false
}

const (
	dateValue = `(\d{4}-\d{1,2}-\d{1,2}` +
		`|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}` +
		`|\d{1,2}\s+[A-Za-z]{3,9}\.?,?\s+\d{4}` +
		`|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})`
	idValue   = `([A-Za-z0-9][A-Za-z0-9\-/]*)`
	labelSep  = `\s*(?:\([^)\n]*\))?\s*[:.]?\s*`
	amount    = `(?:USD|EUR|GBP|CAD|AUD|INR)?\s*[$€£]?\s*(\(?-?\d(?:[\d.,]*\d)?\)?)`
	lineStart = `(?m)^[ \t]*`
)

var (
	// identifier labels and values share a line, so a bare "INVOICE" header
	// never pairs with a word on the next line
	invoiceNoMatchers = []Matcher{
		Pattern(`Invoice[ \t]*(?:#|No\b\.?|Number\b|Num\b\.?)[ \t]*[:.#]?[ \t]*` + idValue),
		Pattern(`Invoice[ \t]*ID\b[ \t]*[:.#]?[ \t]*` + idValue),
		Pattern(`\b(INV[\-#]?\d{3,}[A-Za-z0-9\-]*)`),
	}

	dateMatchers = []Matcher{
		Pattern(lineStart + `(?:Invoice\s*)?Date\b` + labelSep + dateValue),
		Pattern(`(?:Invoice|Issue|Billing|Bill)\s*Date\b` + labelSep + dateValue),
		Pattern(`\bDated\b` + labelSep + dateValue),
	}

	dueDateMatchers = []Matcher{
		Pattern(`Due\s*Date\b` + labelSep + dateValue),
		Pattern(`Payment\s*Due\b` + labelSep + dateValue),
		Pattern(`Due\s*(?:On|By)\b` + labelSep + dateValue),
	}

	poNumberMatchers = []Matcher{
		Pattern(`\bP\.?[ \t]?O\.?[ \t]*(?:#|No\b\.?|Number\b)[ \t]*[:.#]?[ \t]*` + idValue),
		Pattern(`Purchase[ \t]*Order[ \t]*(?:#|No\b\.?|Number\b)?[ \t]*[:.#]?[ \t]*` + idValue),
	}

	paymentTermsMatchers = []Matcher{
		Pattern(`Payment\s*Terms\b[ \t]*[:.]?[ \t]*([^\n]+)`),
		Pattern(lineStart + `Terms\b[ \t]*[:.]?[ \t]*([^\n]+)`),
	}

	subtotalMatchers = []Matcher{
		Pattern(`\bSub[\s\-]?Total\b` + labelSep + amount),
	}

	taxMatchers = []Matcher{
		Pattern(lineStart + `(?:Sales\s*)?(?:Tax|VAT|GST|HST)\b(?:\s*Amount)?` + labelSep + amount),
		Pattern(`\b(?:Total\s*)?(?:Tax|VAT|GST)\b` + labelSep + amount),
	}

	shippingMatchers = []Matcher{
		Pattern(`\b(?:Shipping|Freight|Delivery)(?:\s*(?:&|and)\s*Handling)?\b` + labelSep + amount),
	}

	discountMatchers = []Matcher{
		Pattern(`\bDiscount\b` + labelSep + amount),
	}

	totalAmountMatchers = []Matcher{
		Pattern(lineStart + `(?:Total\s*Amount(?:\s*Due)?|Grand\s*Total|Invoice\s*Total|Total\s*Due|Amount\s*Due|Balance\s*Due|Total)\b` + labelSep + amount),
		Pattern(`\b(?:Amount|Balance|Total)\s*Due\b` + labelSep + amount),
		Pattern(`(?:^|[^A-Za-z])Total\b(?:\s*Amount)?` + labelSep + amount),
	}
)
