package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	// 4 words, 20 chars: (5 + 5) / 2
	assert.Equal(t, 5, EstimateTokens("intro call went well"))
	long := strings.Repeat("word ", 100)
	assert.InDelta(t, 127, EstimateTokens(long), 2)
}

func TestTruncateToTokenBudget(t *testing.T) {
	assert.Equal(t, "", TruncateToTokenBudget("anything", 0))
	assert.Equal(t, "short note", TruncateToTokenBudget("short note", 50))

	long := strings.Repeat("alpha beta ", 50)
	out := TruncateToTokenBudget(long, 10)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len([]rune(out)), 10*charsPerToken+3)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(out, "..."), " "))
}

func TestTruncateToTokenBudget_MultiByte(t *testing.T) {
	text := strings.Repeat("é", 200)
	out := TruncateToTokenBudget(text, 5)
	assert.Equal(t, strings.Repeat("é", 20)+"...", out)
}

func TestFitNewest(t *testing.T) {
	items := []string{
		strings.Repeat("old ", 40),
		strings.Repeat("mid ", 40),
		strings.Repeat("new ", 40),
	}
	per := EstimateTokens(items[0]) + 2

	assert.Equal(t, 0, FitNewest(items, per-1, 2))
	assert.Equal(t, 1, FitNewest(items, per, 2))
	assert.Equal(t, 2, FitNewest(items, 2*per+1, 2))
	assert.Equal(t, 3, FitNewest(items, 1000, 2))
	assert.Equal(t, 0, FitNewest(nil, 1000, 2))
}
