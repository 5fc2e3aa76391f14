package brand

import (
	"regexp"
	"strconv"
	"strings"
)

//nolint:gochecknoglobals // Compiled once; patterns are static.
var (
	numberedMarkerRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+`)
	bulletMarkerRe   = regexp.MustCompile(`^\s*[-*\x{2022}]\s+`)
	subHeadingRe     = regexp.MustCompile(`^\s*#{2,}\s*`)
)

// DetectMention reports whether any brand-name variant appears in text,
// case-insensitively. Empty text or an empty variant set never match.
func DetectMention(text string, variants []string) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	for _, v := range variants {
		if v == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}

	return false
}

// ExtractMentionRank returns the 1-based list position at which the brand
// is first mentioned, scanning lines top to bottom with a running counter:
// an explicit numbered marker ("3. " or "3) ") sets the counter to that
// number, a bullet or markdown sub-heading increments it, and any other
// line leaves it unchanged. The rank is the counter on the first line that
// both mentions the brand and has a counter greater than zero.
//
// A mention on a plain prose line, or before any list marker, yields no
// rank. Only enumerated comparisons are ranked.
func ExtractMentionRank(text string, variants []string) (int, bool) {
	if !DetectMention(text, variants) {
		return 0, false
	}

	counter := 0
	for _, line := range strings.Split(text, "\n") {
		if m := numberedMarkerRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				counter = n
			}
		} else if bulletMarkerRe.MatchString(line) || subHeadingRe.MatchString(line) {
			counter++
		}

		if counter > 0 && DetectMention(line, variants) {
			return counter, true
		}
	}

	return 0, false
}
