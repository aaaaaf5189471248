// Package llm routes completion requests to Claude, Gemini or OpenAI by
// model name.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType identifies an LLM vendor
type ProviderType string

const (
	ProviderClaude ProviderType = "claude"
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

// ErrNoCredential is returned when the model's provider has no API key
var ErrNoCredential = errors.New("no API key configured for model provider")

// Service implements interfaces.LLMService
type Service struct {
	config *common.LLMConfig
	logger arbor.ILogger
	retry  RetryConfig

	keys map[ProviderType]string

	mu     sync.Mutex
	claude *anthropic.Client
	gemini *genai.Client
	openai *openai.Client
}

// NewService resolves provider credentials from the environment and
// config. Providers without a key are reported unavailable.
func NewService(config *common.LLMConfig, logger arbor.ILogger) *Service {
	keys := make(map[ProviderType]string)
	for provider, entry := range map[ProviderType][2]string{
		ProviderClaude: {"claude_api_key", config.ClaudeAPIKey},
		ProviderGemini: {"gemini_api_key", config.GeminiAPIKey},
		ProviderOpenAI: {"openai_api_key", config.OpenAIAPIKey},
	} {
		if key, err := common.ResolveAPIKey(entry[0], entry[1]); err == nil {
			keys[provider] = key
		}
	}

	logger.Debug().
		Bool("claude", keys[ProviderClaude] != "").
		Bool("gemini", keys[ProviderGemini] != "").
		Bool("openai", keys[ProviderOpenAI] != "").
		Str("default_model", config.DefaultModel).
		Msg("LLM providers resolved")

	return &Service{
		config: config,
		logger: logger,
		retry:  NewRetryConfig(config.MaxRetries),
		keys:   keys,
	}
}

// DetectProvider determines the provider from a model string. Models may
// carry an explicit "provider/" prefix.
func DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	case strings.HasPrefix(model, "openai/"), strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return ProviderOpenAI
	default:
		return ""
	}
}

// NormalizeModel removes a provider prefix from a model name
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/", "openai/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Available reports whether the model's provider has a credential
func (s *Service) Available(model string) bool {
	if model == "" {
		model = s.config.DefaultModel
	}
	provider := DetectProvider(model)
	return provider != "" && s.keys[provider] != ""
}

// Generate runs one completion, retrying rate-limit answers with backoff
func (s *Service) Generate(ctx context.Context, req interfaces.LLMRequest) (string, error) {
	if req.Model == "" {
		req.Model = s.config.DefaultModel
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = s.config.MaxTokens
	}
	if req.Temperature <= 0 {
		req.Temperature = s.config.Temperature
	}

	provider := DetectProvider(req.Model)
	if provider == "" {
		return "", fmt.Errorf("unrecognized model %q", req.Model)
	}
	if s.keys[provider] == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrNoCredential)
	}
	model := NormalizeModel(req.Model)

	timeout := common.ParseDuration(s.config.Timeout, 120*time.Second)
	start := time.Now()

	var text string
	var err error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err = s.call(callCtx, provider, model, req)
		cancel()

		if err == nil || !IsRateLimitError(err) || attempt == s.retry.MaxAttempts-1 {
			break
		}

		backoff := s.retry.Backoff(attempt, ExtractRetryDelay(err))
		s.logger.Warn().
			Str("provider", string(provider)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Rate limited, retrying LLM call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if err != nil {
		return "", fmt.Errorf("%s %s: %w", provider, model, err)
	}

	s.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("LLM completion finished")

	return text, nil
}

func (s *Service) call(ctx context.Context, provider ProviderType, model string, req interfaces.LLMRequest) (string, error) {
	switch provider {
	case ProviderClaude:
		return s.generateWithClaude(ctx, model, req)
	case ProviderGemini:
		return s.generateWithGemini(ctx, model, req)
	default:
		return s.generateWithOpenAI(ctx, model, req)
	}
}

// splitSystem separates system messages from the conversation
func splitSystem(req interfaces.LLMRequest) ([]interfaces.Message, string, error) {
	system := req.System
	messages := make([]interfaces.Message, 0, len(req.Messages))
	hasUser := false

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
			}
		case "user":
			hasUser = true
			messages = append(messages, msg)
		default:
			messages = append(messages, msg)
		}
	}

	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return messages, system, nil
}
