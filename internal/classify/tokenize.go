package classify

import (
	"regexp"
	"strings"
)

var reToken = regexp.MustCompile(`[a-z0-9]{2,}`)

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// features returns lowercase word unigrams followed by adjacent-word bigrams.
func features(text string) []string {
	words := reToken.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(words)-1)
	out = append(out, words...)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+" "+words[i+1])
	}
	return out
}
