package llm

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Usage is the accumulated token estimate for a client
type Usage struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// TokenCounter estimates the number of tokens in a text
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter
type TokenCounterFunc func(text string) int

// Count implements TokenCounter
func (f TokenCounterFunc) Count(text string) int { return f(text) }

type tiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a cl100k_base counter. The encoding is loaded on
// first use; if it cannot be loaded the counter falls back to len/4.
func NewTiktokenCounter() TokenCounter {
	return &tiktokenCounter{}
}

func (t *tiktokenCounter) Count(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// UsageTracker wraps a Client and accumulates token estimates per call.
// It is safe for concurrent use.
type UsageTracker struct {
	inner   Client
	counter TokenCounter

	mu     sync.Mutex
	total  Usage
	byTier map[ModelTier]Usage
}

var _ Client = (*UsageTracker)(nil)

// NewUsageTracker wraps inner. A nil counter uses NewTiktokenCounter.
func NewUsageTracker(inner Client, counter TokenCounter) *UsageTracker {
	if counter == nil {
		counter = NewTiktokenCounter()
	}
	return &UsageTracker{
		inner:   inner,
		counter: counter,
		byTier:  make(map[ModelTier]Usage),
	}
}

// GenerateContent implements Client
func (u *UsageTracker) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	out, err := u.inner.GenerateContent(ctx, prompt, tier)
	u.record(tier, prompt, out)
	return out, err
}

// GenerateJSON implements Client
func (u *UsageTracker) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	out, err := u.inner.GenerateJSON(ctx, prompt, tier)
	u.record(tier, prompt, out)
	return out, err
}

// GetModel implements Client
func (u *UsageTracker) GetModel(tier ModelTier) string {
	return u.inner.GetModel(tier)
}

// Close implements Client
func (u *UsageTracker) Close() error {
	return u.inner.Close()
}

// Total returns the usage accumulated across all tiers.
func (u *UsageTracker) Total() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}

// ByTier returns the usage accumulated for a single tier.
func (u *UsageTracker) ByTier(tier ModelTier) Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.byTier[tier]
}

func (u *UsageTracker) record(tier ModelTier, prompt, completion string) {
	promptTokens := u.counter.Count(prompt)
	completionTokens := u.counter.Count(completion)

	u.mu.Lock()
	defer u.mu.Unlock()

	u.total.Calls++
	u.total.PromptTokens += promptTokens
	u.total.CompletionTokens += completionTokens

	t := u.byTier[tier]
	t.Calls++
	t.PromptTokens += promptTokens
	t.CompletionTokens += completionTokens
	u.byTier[tier] = t
}
