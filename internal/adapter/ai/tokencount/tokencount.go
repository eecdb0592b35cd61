// Package tokencount estimates token usage for judge prompts using
// tiktoken-go so overly long student responses can be clamped before a call.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting backed by a cached encoding.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// DefaultCounter is a process-wide counter instance.
var DefaultCounter = &Counter{}

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		// cl100k_base is close enough across modern chat models for a
		// truncation budget; exact provider tokenization is not required.
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	return c.enc, c.err
}

// Count returns the token count of s, falling back to a bytes/4 estimate if
// the encoding cannot be loaded.
func (c *Counter) Count(s string) int {
	enc, err := c.encoding()
	if err != nil {
		slog.Debug("token encoding unavailable, estimating", slog.Any("error", err))
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}

// Truncate returns s cut down to at most budget tokens. Returns s unchanged
// when it already fits or the encoding cannot be loaded and the byte estimate
// fits.
func (c *Counter) Truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	enc, err := c.encoding()
	if err != nil {
		if len(s)/4 <= budget {
			return s
		}
		return s[:budget*4]
	}
	toks := enc.Encode(s, nil, nil)
	if len(toks) <= budget {
		return s
	}
	return enc.Decode(toks[:budget])
}
