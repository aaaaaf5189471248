package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
)

type scriptedLLM struct {
	reply string
	calls int
	last  interfaces.LLMRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req interfaces.LLMRequest) (string, error) {
	s.calls++
	s.last = req
	return s.reply, nil
}

func (s *scriptedLLM) Available(model string) bool { return true }

func newTransform(llmService interfaces.LLMService) *LLMTransform {
	logger := arbor.NewLogger()
	return NewLLMTransform(TransformConfig{MaxTokens: 8192}, llmService, cache.NewService(memory.NewCacheStorage(), logger), logger)
}

func samplePayload() Payload {
	return Payload{
		Ticker:     "AAPL",
		Date:       "2024-01-05",
		Historical: true,
		Filings:    []models.Filing{{Form: "10-Q", AccessionID: "a-1"}},
		MarketData: models.MarketData{Price: 181.18, PriceSource: "eodhd"},
	}
}

func TestTransform_StripsFence(t *testing.T) {
	llm := &scriptedLLM{reply: "```json\n{\"rating\": \"hold\", \"targetPrice\": 190}\n```"}

	out, err := newTransform(llm).Transform(context.Background(), samplePayload(), "claude-sonnet-4-20250514", PromptVersionScored)
	require.NoError(t, err)

	assert.JSONEq(t, `{"rating":"hold","targetPrice":190}`, string(out))
	assert.True(t, llm.last.JSONOutput)
	assert.Equal(t, scoredSystem, llm.last.System)
	require.Len(t, llm.last.Messages, 1)
	assert.Contains(t, llm.last.Messages[0].Content, `"ticker":"AAPL"`)
}

func TestTransform_RawFallback(t *testing.T) {
	llm := &scriptedLLM{reply: "I cannot produce JSON today."}

	out, err := newTransform(llm).Transform(context.Background(), samplePayload(), "gpt-4o", PromptVersionProfile)
	require.NoError(t, err)

	assert.JSONEq(t, `{"raw":"I cannot produce JSON today."}`, string(out))
}

func TestTransform_NonObjectIsRaw(t *testing.T) {
	llm := &scriptedLLM{reply: `["buy"]`}

	out, err := newTransform(llm).Transform(context.Background(), samplePayload(), "gpt-4o", PromptVersionProfile)
	require.NoError(t, err)

	assert.JSONEq(t, `{"raw":"[\"buy\"]"}`, string(out))
}

func TestTransform_CachedByPayloadAndPromptVersion(t *testing.T) {
	llm := &scriptedLLM{reply: `{"rating":"buy"}`}
	tr := newTransform(llm)
	ctx := context.Background()

	_, err := tr.Transform(ctx, samplePayload(), "gpt-4o", PromptVersionScored)
	require.NoError(t, err)
	_, err = tr.Transform(ctx, samplePayload(), "gpt-4o", PromptVersionScored)
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)

	_, err = tr.Transform(ctx, samplePayload(), "gpt-4o", PromptVersionProfile)
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls, "a prompt version change misses the cache")

	changed := samplePayload()
	changed.MarketData.Price = 182
	_, err = tr.Transform(ctx, changed, "gpt-4o", PromptVersionScored)
	require.NoError(t, err)
	assert.Equal(t, 3, llm.calls)
}
