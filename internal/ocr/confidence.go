package ocr

import (
	"regexp"
	"strings"
)

// textSignal is an invoice artifact whose presence raises trust in decoded text.
type textSignal struct {
	re     *regexp.Regexp
	weight float32
}

var invoiceSignals = []textSignal{
	{regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`), 0.2},
	{regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`), 0.15},
	{regexp.MustCompile(`\binvoice\b|\btotal\b|\bqty\b|\bdue\b`), 0.15},
	{regexp.MustCompile(`[$£€]|\b(usd|eur|gbp|cad|aud|inr)\b`), 0.1},
}

const (
	baseConfidence = 0.2
	// text longer than this counts as a full page rather than a fragment
	substantialChars  = 120
	substantialWeight = 0.1
)

// heuristicConfidence scores decoded text in [0,1] by the invoice artifacts it
// contains. Blank text scores zero.
func heuristicConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	lower := strings.ToLower(txt)
	score := float32(baseConfidence)
	for _, s := range invoiceSignals {
		if s.re.MatchString(lower) {
			score += s.weight
		}
	}
	if len(txt) > substantialChars {
		score += substantialWeight
	}
	return min(score, 1)
}
