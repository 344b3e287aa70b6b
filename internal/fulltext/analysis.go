package fulltext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// analyze splits text on anything that is not a letter or digit and
// lowercases the words.
func analyze(text string) []string {
	var words []string
	i := 0

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			i += size
			continue
		}

		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}

		words = append(words, strings.ToLower(text[start:i]))
	}

	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Mode selects which partial terms of a word are indexed.
type Mode int

const (
	// Forward indexes every prefix of a word, so "smi" finds "smile".
	Forward Mode = iota
	// Reverse indexes every prefix and every suffix, so "tion" finds "emotion".
	Reverse
)

// expand returns the indexed terms for one word.
func (m Mode) expand(word string) []string {
	runes := []rune(word)
	terms := make([]string, 0, 2*len(runes))
	for i := 1; i <= len(runes); i++ {
		terms = append(terms, string(runes[:i]))
	}
	if m == Reverse {
		for i := 1; i < len(runes); i++ {
			terms = append(terms, string(runes[i:]))
		}
	}
	return terms
}
