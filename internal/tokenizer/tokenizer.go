// Package tokenizer counts text tokens for the controller's prompt
// budget. It wraps tiktoken with lazy initialization (encoding data
// may be downloaded on first use) and degrades to a character
// estimate when the encoding is unavailable.
package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in text. It matches topology.TokenCounter.
type Counter struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// New creates a Counter for the given tiktoken encoding name. Empty
// selects DefaultEncoding. Initialization is lazy; construction never
// fails.
func New(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Counter{encoding: encoding}
}

func (c *Counter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding %s: %w", c.encoding, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count returns the token count of text. When the encoding cannot be
// initialized it falls back to a four-characters-per-token estimate so
// budget checks stay usable offline.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if err := c.init(); err != nil {
		return estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Truncate trims text to at most budget tokens, cutting whole tokens
// from the end. Text already within the budget is returned unchanged.
func (c *Counter) Truncate(text string, budget int) string {
	if budget <= 0 || text == "" {
		return ""
	}
	if err := c.init(); err != nil {
		if estimate(text) <= budget {
			return text
		}
		cut := budget * 4
		if cut >= len(text) {
			return text
		}
		// Back off to a rune boundary so the estimate cut never
		// splits a multi-byte character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut]
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return c.enc.Decode(tokens[:budget])
}

// Name identifies the counter's encoding.
func (c *Counter) Name() string {
	return fmt.Sprintf("tiktoken[%s]", c.encoding)
}

func estimate(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
