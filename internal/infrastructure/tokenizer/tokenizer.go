// Package tokenizer counts model tokens with tiktoken, falling back to a
// character heuristic when the encoding cannot be loaded.
package tokenizer

import (
	"strings"
	"sync"

	"webpilot/internal/application/port/output"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

var (
	_ output.TokenCounter = (*Counter)(nil)
	_ output.TokenCounter = Estimator{}
)

// Counter loads the encoding lazily on first use.
type Counter struct {
	name     string
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func New() *Counter {
	return &Counter{name: defaultEncoding}
}

func NewWithEncoding(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		if enc, err := tiktoken.GetEncoding(c.name); err == nil {
			c.encoding = enc
		}
	})
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimator is the offline heuristic: max(runes/4, words).
type Estimator struct{}

func (Estimator) Count(text string) int {
	return Estimate(text)
}

func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
