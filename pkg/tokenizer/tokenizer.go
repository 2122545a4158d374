// Package tokenizer estimates prompt sizes so long note histories fit a
// model's context window.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken is the rough characters-per-token ratio for English text.
const charsPerToken = 4

// EstimateTokens returns a rough token count for text: the average of a
// word-based (~1.3 tokens per word) and a character-based estimate.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)
	return (words*13/10 + chars/charsPerToken) / 2
}

// TruncateToTokenBudget shortens text to roughly budget tokens, cutting at a
// word boundary when one is close and appending "...". It never splits a
// multi-byte rune.
func TruncateToTokenBudget(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if EstimateTokens(text) <= budget {
		return text
	}
	runes := []rune(text)
	maxRunes := budget * charsPerToken
	if maxRunes >= len(runes) {
		return text
	}
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

// FitNewest reports how many items, counted back from the end of items, fit
// within budget. Each item costs its estimate plus overhead tokens.
func FitNewest(items []string, budget, overhead int) int {
	used, n := 0, 0
	for i := len(items) - 1; i >= 0; i-- {
		cost := EstimateTokens(items[i]) + overhead
		if used+cost > budget {
			break
		}
		used += cost
		n++
	}
	return n
}
