package classify

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const (
	DefaultFuzzyLines    = 5
	DefaultFuzzyMinScore = 0.6
)

// FuzzyMatcher compares the leading lines of a document against known vendor
// names using normalized Levenshtein similarity.
type FuzzyMatcher struct {
	vendors  []string
	lines    int
	minScore float64
}

// NewFuzzyMatcher uses the built-in vendor list when vendors is empty.
func NewFuzzyMatcher(vendors []string, lines int) *FuzzyMatcher {
	if len(vendors) == 0 {
		vendors = constants.VendorNames()
	}
	if lines <= 0 {
		lines = DefaultFuzzyLines
	}
	return &FuzzyMatcher{vendors: vendors, lines: lines, minScore: DefaultFuzzyMinScore}
}

// Predict returns the best-matching vendor, or Unknown with confidence 0 when
// nothing scores at least the minimum similarity.
func (f *FuzzyMatcher) Predict(text string) Prediction {
	lines := leadingLines(text, f.lines)
	if len(lines) == 0 {
		return unknown()
	}

	best := Prediction{Name: constants.UnknownVendor, Method: constants.VendorMethodNone}
	for _, v := range f.vendors {
		nv := normalizeName(v)
		if nv == "" {
			continue
		}
		for _, line := range lines {
			if s := score(line, nv); s > best.Confidence {
				best = Prediction{Name: v, Confidence: s, Method: constants.VendorMethodFuzzy}
			}
		}
	}
	if best.Confidence < f.minScore {
		return unknown()
	}
	return best
}

// Similarity is the vendor similarity used by the matcher, exposed for
// validating user-supplied vendor names.
func Similarity(a, b string) float64 {
	return score(normalizeName(a), normalizeName(b))
}

// score is the larger of whole-string similarity and best window similarity,
// so a vendor name embedded in a longer line still matches.
func score(line, vendor string) float64 {
	if line == "" || vendor == "" {
		return 0
	}
	best := levenshtein.Similarity(line, vendor, nil)
	short, long := []rune(vendor), []rune(line)
	// a short line is never matched as a fragment of a vendor name
	if len(short) >= len(long) {
		return best
	}
	s := string(short)
	for i := 0; i+len(short) <= len(long); i++ {
		if sim := levenshtein.Similarity(string(long[i:i+len(short)]), s, nil); sim > best {
			best = sim
			if best == 1 {
				break
			}
		}
	}
	return best
}

func leadingLines(text string, n int) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		if l := normalizeName(raw); l != "" {
			out = append(out, l)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// normalizeName lowercases, drops punctuation and collapses whitespace.
func normalizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
