// Package tokenbudget provides the query engine's tokenizer: cl100k_base
// via tiktoken-go, per spec.md's open question on tokenizer choice. C4's
// rulebook content-selection budget uses it; C6 (the prompt manager) does
// not count tokens.
package tokenbudget

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultRulebookBudget is the default token budget for C4's recursive
// descendant-content selection, per spec §4.4.
const DefaultRulebookBudget = 8000

// Counter counts tokens for a fixed encoding. Safe for concurrent use.
type Counter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
	defaultErr     error
)

// New returns a Counter using the cl100k_base encoding.
func New() (*Counter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenbudget: load cl100k_base: %w", err)
	}
	return &Counter{enc: enc}, nil
}

// Default returns a process-wide Counter, building it once on first use.
func Default() (*Counter, error) {
	defaultOnce.Do(func() {
		defaultCounter, defaultErr = New()
	})
	return defaultCounter, defaultErr
}

// Count returns the number of cl100k_base tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
