package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	content string
	err     error
}

func (s *stubClient) GenerateContent(_ context.Context, _ string, _ ModelTier) (string, error) {
	return s.content, s.err
}

func (s *stubClient) GenerateJSON(_ context.Context, _ string, _ ModelTier) (string, error) {
	return s.content, s.err
}

func (s *stubClient) GetModel(tier ModelTier) string { return "stub-" + string(tier) }

func (s *stubClient) Close() error { return nil }

func wordCounter() TokenCounter {
	return TokenCounterFunc(func(text string) int {
		n := 0
		inWord := false
		for _, r := range text {
			if r == ' ' || r == '\n' {
				inWord = false
				continue
			}
			if !inWord {
				n++
				inWord = true
			}
		}
		return n
	})
}

func TestUsageTracker_Accumulates(t *testing.T) {
	tracker := NewUsageTracker(&stubClient{content: `{"letter": "hi there"}`}, wordCounter())

	_, err := tracker.GenerateJSON(context.Background(), "score these jobs", TierLite)
	require.NoError(t, err)
	_, err = tracker.GenerateContent(context.Background(), "write letter", TierStandard)
	require.NoError(t, err)

	total := tracker.Total()
	assert.Equal(t, 2, total.Calls)
	assert.Equal(t, 5, total.PromptTokens)
	assert.Equal(t, 6, total.CompletionTokens)
	assert.Equal(t, 11, total.TotalTokens())

	lite := tracker.ByTier(TierLite)
	assert.Equal(t, 1, lite.Calls)
	assert.Equal(t, 3, lite.PromptTokens)
	assert.Equal(t, Usage{}, tracker.ByTier(TierAdvanced))
}

func TestUsageTracker_CountsFailedCalls(t *testing.T) {
	tracker := NewUsageTracker(&stubClient{err: errors.New("quota")}, wordCounter())

	_, err := tracker.GenerateJSON(context.Background(), "one two", TierStandard)
	require.Error(t, err)

	assert.Equal(t, Usage{Calls: 1, PromptTokens: 2}, tracker.Total())
}

func TestUsageTracker_Delegates(t *testing.T) {
	tracker := NewUsageTracker(&stubClient{}, wordCounter())

	assert.Equal(t, "stub-standard", tracker.GetModel(TierStandard))
	assert.NoError(t, tracker.Close())
}

func TestUsageTracker_Concurrent(t *testing.T) {
	tracker := NewUsageTracker(&stubClient{content: "ok"}, wordCounter())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tracker.GenerateContent(context.Background(), "prompt", TierLite)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, tracker.Total().Calls)
	assert.Equal(t, 20, tracker.ByTier(TierLite).CompletionTokens)
}
