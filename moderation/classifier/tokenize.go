// Package classifier implements the self-training text classifier of
// the smart moderation tier: a TF-IDF vectorizer over word and
// character n-grams and an online logistic model trained in batches
// under a wall-clock budget.
package classifier

import (
	"strings"
	"unicode"
)

// Segmenter splits raw text into word tokens. The default segmenter
// handles mixed scripts; a dictionary-based CJK segmenter can be
// plugged in via SetSegmenter.
type Segmenter interface {
	Cut(text string) []string
}

var segmenter Segmenter = runeSegmenter{}

// SetSegmenter replace the word segmenter
func SetSegmenter(s Segmenter) {
	if s != nil {
		segmenter = s
	}
}

// runeSegmenter emits runs of letters and digits as tokens, except
// that every CJK rune is a token of its own.
type runeSegmenter struct{}

func (runeSegmenter) Cut(text string) []string {
	tokens := []string{}
	current := []rune{}
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current = append(current, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// Tokenize turns raw text into the vectorizer input: word tokens,
// optionally followed by the character bigrams and trigrams of the
// original text, joined by single spaces.
func Tokenize(text string, useCharNgram bool) string {
	tokens := segmenter.Cut(text)

	if useCharNgram {
		runes := []rune(text)
		for i := 0; i+1 < len(runes); i++ {
			tokens = append(tokens, string(runes[i:i+2]))
		}
		for i := 0; i+2 < len(runes); i++ {
			tokens = append(tokens, string(runes[i:i+3]))
		}
	}

	return strings.Join(tokens, " ")
}
