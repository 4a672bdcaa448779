package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer provides approximate token counting and simple term
// extraction for chunk budgeting and lexical scoring.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// CountTokens returns an approximate model-token count for text.
func (t *Tokenizer) CountTokens(text string) int {
	return EstimateTokens(CountWords(text))
}

// CountWords returns the number of words in text. Word counts are
// additive across splits that fall on non-word characters, which the
// chunker relies on when merging adjacent segments.
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if IsWordRune(r) {
			if !inWord {
				count++
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return count
}

// EstimateTokens converts a word count to an approximate model-token
// count. Subword tokenizers average about 1.3 tokens per word.
func EstimateTokens(words int) int {
	if words == 0 {
		return 0
	}
	return int(float64(words) * 1.3)
}

// Terms splits text into lowercased terms for lexical overlap scoring.
// Terms shorter than two characters are dropped.
func (t *Tokenizer) Terms(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 2 {
			terms = append(terms, strings.ToLower(current.String()))
		}
		current.Reset()
	}

	for _, r := range text {
		if IsWordRune(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return terms
}

// IsWordRune reports whether r is part of a word.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
