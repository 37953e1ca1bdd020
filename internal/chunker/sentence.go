package chunker

import (
	"strings"
	"unicode"
)

// SplitSentences splits text into sentences on sentence-final punctuation
// followed by whitespace. Two suppression rules avoid the most common false
// positives: an inner-abbreviation shape like "e.g." or "U.S.", and a short
// capitalized abbreviation like "Mr." or "Dr.". Abbreviations outside those
// shapes still over-split; this is a heuristic, not a language parser.
//
// Fragments are trimmed; empty fragments are dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)

	var sentences []string
	start := 0

	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		prev := runes[i-1]
		if prev != '.' && prev != '!' && prev != '?' {
			continue
		}
		if abbrevTail(runes, i) {
			continue
		}
		frag := strings.TrimSpace(string(runes[start:i]))
		if frag != "" {
			sentences = append(sentences, frag)
		}
		start = i + 1
	}

	if last := strings.TrimSpace(string(runes[start:])); last != "" {
		sentences = append(sentences, last)
	}
	return sentences
}

// abbrevTail reports whether the boundary at whitespace index i looks like
// the tail of an abbreviation rather than a sentence end.
func abbrevTail(runes []rune, i int) bool {
	// "e.g. ", "U.S. ": word, period, word immediately before the final period.
	if i >= 4 && isWordRune(runes[i-4]) && runes[i-3] == '.' && isWordRune(runes[i-2]) {
		return true
	}
	// "Mr. ", "Dr. ": capital, lowercase, period.
	if i >= 3 && runes[i-1] == '.' && unicode.IsUpper(runes[i-3]) && unicode.IsLower(runes[i-2]) {
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
