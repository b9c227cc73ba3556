package validate

import (
	"strings"
	"time"
)

// month-first layouts are tried before day-first ones
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01.02.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2.1.2006",
	"01/02/06",
	"1/2/06",
	"02/01/06",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate understands the date shapes the extractor captures.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	s = strings.Replace(s, "Sept ", "Sep ", 1)
	// "Jan. 5 2024" -> "Jan 5 2024"
	if i := strings.IndexByte(s, '.'); i > 0 && isLetter(s[i-1]) {
		s = s[:i] + s[i+1:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
