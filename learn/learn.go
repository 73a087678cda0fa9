// CLAUDE:SUMMARY Text normalization and learned-phrase extraction shared by the matcher and the bulk revert actions.
// Package learn holds the text-side collaborators of the redaction engine:
// the canonical normalization used for match keys and the phrase extraction
// used to decide whether a box's text carries a learned blacklist term.
package learn

import (
	"strings"
	"unicode"
)

// maxPhraseTokens bounds the n-gram window for ExtractBlacklistPhrases.
const maxPhraseTokens = 4

// Normalize lowercases text and collapses every run of non-alphanumeric
// runes into a single space. This is the one normalization used everywhere
// two pieces of text are compared: "555-1234" and "555 1234" normalize to
// the same key.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokens returns the whitespace-delimited tokens of the normalized text.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// ExtractBlacklistPhrases returns every normalized n-gram (1..4 tokens) of
// the text, deduplicated, in first-occurrence order. A box whose underlying
// text yields a learned term among these phrases is considered to carry it.
func ExtractBlacklistPhrases(s string) []string {
	toks := Tokens(s)
	if len(toks) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var phrases []string
	for n := 1; n <= maxPhraseTokens && n <= len(toks); n++ {
		for i := 0; i+n <= len(toks); i++ {
			p := strings.Join(toks[i:i+n], " ")
			if seen[p] {
				continue
			}
			seen[p] = true
			phrases = append(phrases, p)
		}
	}
	return phrases
}
