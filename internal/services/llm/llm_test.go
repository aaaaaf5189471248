package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
)

func clearKeyEnv(t *testing.T) {
	for _, name := range []string{
		"TICKERLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY",
		"TICKERLENS_GEMINI_API_KEY", "GOOGLE_API_KEY",
		"TICKERLENS_OPENAI_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func TestDetectProvider(t *testing.T) {
	tests := map[string]ProviderType{
		"claude-sonnet-4-20250514":   ProviderClaude,
		"anthropic/claude-3-5-haiku": ProviderClaude,
		"gemini-2.5-flash":           ProviderGemini,
		"google/gemini-2.5-pro":      ProviderGemini,
		"gpt-4o":                     ProviderOpenAI,
		"o3-mini":                    ProviderOpenAI,
		"openai/gpt-4.1":             ProviderOpenAI,
		"llama-3":                    "",
	}
	for model, want := range tests {
		assert.Equal(t, want, DetectProvider(model), model)
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "claude-3-5-haiku", NormalizeModel("anthropic/claude-3-5-haiku"))
	assert.Equal(t, "gpt-4o", NormalizeModel("gpt-4o"))
}

func TestAvailable(t *testing.T) {
	clearKeyEnv(t)
	cfg := common.NewDefaultConfig().LLM
	cfg.GeminiAPIKey = "gemini-key"

	svc := NewService(&cfg, arbor.NewLogger())
	assert.True(t, svc.Available("gemini-2.5-flash"))
	assert.False(t, svc.Available("claude-sonnet-4-20250514"))
	assert.False(t, svc.Available(""), "default model is a Claude model")
	assert.False(t, svc.Available("llama-3"))
}

func TestGenerate_NoCredential(t *testing.T) {
	clearKeyEnv(t)
	cfg := common.NewDefaultConfig().LLM
	svc := NewService(&cfg, arbor.NewLogger())

	_, err := svc.Generate(context.Background(), interfaces.LLMRequest{
		Model:    "gpt-4o",
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
	})
	assert.True(t, errors.Is(err, ErrNoCredential))
}

func TestSplitSystem(t *testing.T) {
	msgs, system, err := splitSystem(interfaces.LLMRequest{Messages: []interfaces.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "be terse", system)
	assert.Len(t, msgs, 1)

	_, _, err = splitSystem(interfaces.LLMRequest{Messages: []interfaces.Message{{Role: "assistant", Content: "x"}}})
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"padded", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", `[1,2]`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}

	_, err := ExtractJSON("The stock looks good.")
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestRetryConfig(t *testing.T) {
	cfg := NewRetryConfig(10)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)

	assert.Equal(t, 5*time.Second, cfg.Backoff(0, 0))
	assert.Equal(t, 10*time.Second, cfg.Backoff(1, 0))
	assert.Equal(t, 11*time.Second, cfg.Backoff(0, 10*time.Second))
	assert.Equal(t, DefaultMaxBackoff, cfg.Backoff(8, 0))
}

func TestRateLimitDetection(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, 12500*time.Millisecond, ExtractRetryDelay(err))

	assert.False(t, IsRateLimitError(errors.New("invalid model")))
	assert.False(t, IsRateLimitError(nil))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("boom")))
}
