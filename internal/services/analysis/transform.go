package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/cache"
	"github.com/ternarybob/tickerlens/internal/services/llm"
)

// DefaultTransformTTL is how long a transform response is reused
const DefaultTransformTTL = 30 * 24 * time.Hour

// Payload is the normalized input of the LLM transform
type Payload struct {
	Ticker     string             `json:"ticker"`
	Date       string             `json:"date"`
	Historical bool               `json:"historical"`
	Filings    []models.Filing    `json:"filings"`
	MarketData models.MarketData  `json:"marketData"`
	News       *models.NewsBundle `json:"news,omitempty"`
}

// TransformConfig holds transform settings
type TransformConfig struct {
	MaxTokens   int
	Temperature float32
	TTL         time.Duration
}

// LLMTransform turns a payload into the analysis object through an LLM
type LLMTransform struct {
	config TransformConfig
	llm    interfaces.LLMService
	cache  interfaces.CacheService
	logger arbor.ILogger
}

// NewLLMTransform creates the transform
func NewLLMTransform(config TransformConfig, llmService interfaces.LLMService, cacheService interfaces.CacheService, logger arbor.ILogger) *LLMTransform {
	if config.TTL <= 0 {
		config.TTL = DefaultTransformTTL
	}
	return &LLMTransform{config: config, llm: llmService, cache: cacheService, logger: logger}
}

// Transform returns the parsed analysis for payload. A response that is
// not a JSON object is returned as {"raw": text}. The response is cached
// under a hash of the payload, the model and the prompt version.
func (t *LLMTransform) Transform(ctx context.Context, payload Payload, model, version string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	key := models.NewFetchKey(models.KindTransform, payload.Ticker, time.Time{}, transformTag(body, model, version)).String()
	return cache.Fetch(ctx, t.cache, key, t.config.TTL, func(ctx context.Context) (json.RawMessage, error) {
		text, err := t.llm.Generate(ctx, interfaces.LLMRequest{
			Model:       model,
			System:      systemPrompt(version),
			Messages:    []interfaces.Message{{Role: "user", Content: string(body)}},
			MaxTokens:   t.config.MaxTokens,
			Temperature: t.config.Temperature,
			JSONOutput:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		return t.parse(payload.Ticker, version, text), nil
	})
}

// parse accepts a bare or fenced JSON object and falls back to a raw
// passthrough. Missing keys are logged, not rejected.
func (t *LLMTransform) parse(ticker, version, text string) json.RawMessage {
	raw, err := llm.ExtractJSON(text)

	var obj map[string]json.RawMessage
	if err == nil {
		err = json.Unmarshal(raw, &obj)
	}
	if err != nil {
		t.logger.Warn().Str("ticker", ticker).Err(err).Msg("Transform response is not a JSON object, keeping raw text")
		fallback, _ := json.Marshal(map[string]string{"raw": text})
		return fallback
	}

	var missing []string
	for _, k := range expectedKeys[version] {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		t.logger.Warn().
			Str("ticker", ticker).
			Str("prompt_version", version).
			Strs("missing", missing).
			Msg("Transform response missing expected keys")
	}
	return raw
}

func transformTag(body []byte, model, version string) string {
	sum := sha256.Sum256(body)
	return model + ":" + version + ":" + hex.EncodeToString(sum[:])
}
