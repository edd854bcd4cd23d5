// Package textutil holds the small text functions shared by the simulator,
// judge, and evaluator: tokenization, overlap similarity, and word capping.
package textutil

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\b\w+\b`)

// Tokenize lowercases text and splits it into word tokens.
func Tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// TokenSet returns the set of word tokens in text.
func TokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		set[tok] = true
	}
	return set
}

// Jaccard computes the Jaccard similarity of the token sets of two texts.
// Two empty texts are considered identical.
func Jaccard(a, b string) float64 {
	setA, setB := TokenSet(a), TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// TruncateWords caps text at n words, keeping the first n.
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ")
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
