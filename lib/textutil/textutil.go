package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// Clean trims a scraped string and collapses runs of inner whitespace,
// normalizing the curly apostrophes AO3 renders into plain ones.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// ParseCount parses an integer counter as rendered on a page, e.g. "12,345".
// Anything unparseable counts as 0.
func ParseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
