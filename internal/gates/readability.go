package gates

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	markdownLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	citationMarkerRe = regexp.MustCompile(`\[\d+\]`)
	headingMarkerRe  = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	emphasisMarkerRe = regexp.MustCompile("[*_`]+")
	bulletPrefixRe   = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	numberedPrefixRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
)

// FleschScore computes the Flesch reading-ease score of prose text after
// stripping markdown markup and citation markers. The raw score is clamped
// to [0, 100]. Text with no words or no sentence terminator scores 0: it is
// not prose, and the formula's assumptions do not hold.
func FleschScore(text string) float64 {
	plain := stripMarkup(text)

	words := strings.Fields(plain)
	sentences := countSentences(plain)
	if len(words) == 0 || sentences == 0 {
		return 0
	}

	var syllables int
	for _, word := range words {
		syllables += countSyllables(word)
	}

	score := 206.835 -
		1.015*(float64(len(words))/float64(sentences)) -
		84.6*(float64(syllables)/float64(len(words)))

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func stripMarkup(text string) string {
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = citationMarkerRe.ReplaceAllString(text, "")
	text = headingMarkerRe.ReplaceAllString(text, "")
	text = bulletPrefixRe.ReplaceAllString(text, "")
	text = numberedPrefixRe.ReplaceAllString(text, "")
	text = emphasisMarkerRe.ReplaceAllString(text, "")
	return text
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	return count
}

// countSyllables approximates syllables as vowel groups, with the usual
// silent-e adjustment. Every word counts at least one.
func countSyllables(word string) int {
	letters := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
	if letters == "" {
		return 1
	}

	groups := 0
	prevVowel := false
	for _, r := range letters {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			groups++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(letters, "e") && groups > 1 {
		groups--
	}
	if groups < 1 {
		groups = 1
	}
	return groups
}
