package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Count(t *testing.T) {
	c := New("")

	assert.Equal(t, 0, c.Count(""))
	assert.Greater(t, c.Count("hello world"), 0)

	// Longer text counts more tokens.
	short := c.Count("one sentence")
	long := c.Count(strings.Repeat("one sentence ", 50))
	assert.Greater(t, long, short)
}

func TestCounter_Truncate(t *testing.T) {
	c := New("")

	text := strings.Repeat("the quick brown fox ", 100)
	trimmed := c.Truncate(text, 20)
	assert.Less(t, len(trimmed), len(text))
	assert.LessOrEqual(t, c.Count(trimmed), 20)

	// Within budget: unchanged.
	assert.Equal(t, "short", c.Truncate("short", 100))
	assert.Equal(t, "", c.Truncate("anything", 0))
}

func TestCounter_Truncate_EstimateFallbackKeepsRunesWhole(t *testing.T) {
	// Unknown encoding forces the character-estimate fallback.
	c := New("no-such-encoding")

	text := strings.Repeat("日", 40) // 3 bytes per rune
	trimmed := c.Truncate(text, 2)

	assert.True(t, strings.HasPrefix(text, trimmed))
	assert.True(t, utf8.ValidString(trimmed), "truncation must not split a rune")
	assert.Equal(t, strings.Repeat("日", 2), trimmed)

	// ASCII path is unaffected.
	ascii := strings.Repeat("abcd", 40)
	assert.Equal(t, ascii[:8], c.Truncate(ascii, 2))
}

func TestCounter_Name(t *testing.T) {
	assert.Equal(t, "tiktoken[cl100k_base]", New("").Name())
	assert.Equal(t, "tiktoken[o200k_base]", New("o200k_base").Name())
}
