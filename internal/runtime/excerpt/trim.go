// Package excerpt shortens machine-generated text to a character budget without
// cutting through words.
package excerpt

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const ellipsis = "..."

// Trim returns text unchanged when it fits in maxChars characters. Otherwise it
// cuts at the last word boundary inside the budget, drops trailing commas and
// spaces, and appends an ellipsis unless the result already ends a sentence.
// When no whole word fits, Trim returns "".
//
// Lengths are counted in Unicode code points, never bytes.
func Trim(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	if maxChars <= 0 {
		return ""
	}

	runes := []rune(text)
	slice := strings.TrimSpace(html.UnescapeString(string(runes[:maxChars])))
	sliceWords := strings.Fields(slice)
	n := len(sliceWords)
	if n == 0 {
		return ""
	}

	sourceWords := leadingWords(html.UnescapeString(text), n+1)
	m := len(sourceWords)
	last := sliceWords[n-1]
	truncated := m > n && !boundaryAt(runes, maxChars)
	if !truncated && m >= n {
		truncated = utf8.RuneCountInString(sourceWords[n-1]) > utf8.RuneCountInString(last)
	}
	// A cut word is dropped even when it is the only one; the result is
	// then empty.
	if truncated {
		sliceWords = sliceWords[:n-1]
	}

	out := strings.TrimRight(strings.Join(sliceWords, " "), ", ")
	if out == "" {
		return ""
	}
	switch out[len(out)-1] {
	case '.', '?', '!':
		return out
	}
	return out + ellipsis
}

// leadingWords splits at most limit whitespace-delimited words from text.
func leadingWords(text string, limit int) []string {
	words := make([]string, 0, limit)
	for _, w := range strings.Fields(text) {
		if len(words) == limit {
			break
		}
		words = append(words, w)
	}
	return words
}

// boundaryAt reports whether the rune at index i starts a new word: whitespace,
// end of input, or whitespace immediately before it.
func boundaryAt(runes []rune, i int) bool {
	if i >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[i]) || (i > 0 && unicode.IsSpace(runes[i-1]))
}
