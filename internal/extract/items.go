package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

// DefaultMaxItemLines bounds a table that has no terminating totals line.
const DefaultMaxItemLines = 15

var (
	reItemHeader = regexp.MustCompile(`(?i)\b(?:Item|Description|Product|Service)s?\b.*\b(?:Qty|Quantity|Hours|Hrs|Units?)\b.*\b(?:Price|Rate|Cost)\b.*\b(?:Amount|Total)\b`)
	reItemEnd    = regexp.MustCompile(`(?i)^\s*(?:Sub[\s\-]?total|Total|Tax|VAT|GST|Discount|Balance|Amount\s*Due|Shipping)\b`)
)

// extractItems parses every table that follows an item header row. Each data line must end
// with three numeric tokens (quantity, unit price, total); anything else is skipped.
func extractItems(text string, maxLines int) []entity.LineItem {
	items := []entity.LineItem{}
	if maxLines <= 0 {
		maxLines = DefaultMaxItemLines
	}

	inTable := false
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if reItemHeader.MatchString(trimmed) {
			inTable = true
			seen = 0
			continue
		}
		if !inTable || trimmed == "" {
			continue
		}
		if reItemEnd.MatchString(trimmed) {
			inTable = false
			continue
		}
		seen++
		if seen > maxLines {
			inTable = false
			continue
		}
		if item, ok := parseItemLine(trimmed); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseItemLine(line string) (entity.LineItem, bool) {
	tokens := strings.Fields(line)
	n := len(tokens)
	if n < 4 {
		return entity.LineItem{}, false
	}
	qty, ok := parseFloat(tokens[n-3])
	if !ok {
		return entity.LineItem{}, false
	}
	price, ok := parseFloat(tokens[n-2])
	if !ok {
		return entity.LineItem{}, false
	}
	total, ok := parseFloat(tokens[n-1])
	if !ok {
		return entity.LineItem{}, false
	}
	return entity.LineItem{
		Description: strings.Join(tokens[:n-3], " "),
		Quantity:    qty,
		UnitPrice:   price,
		Total:       total,
	}, true
}
