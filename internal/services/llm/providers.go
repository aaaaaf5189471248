package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"google.golang.org/genai"
)

func (s *Service) claudeClient() *anthropic.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claude == nil {
		client := anthropic.NewClient(anthropicoption.WithAPIKey(s.keys[ProviderClaude]))
		s.claude = &client
	}
	return s.claude
}

func (s *Service) geminiClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gemini == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.keys[ProviderGemini],
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.gemini = client
	}
	return s.gemini, nil
}

func (s *Service) openaiClient() *openai.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openai == nil {
		opts := []openaioption.RequestOption{openaioption.WithAPIKey(s.keys[ProviderOpenAI])}
		if s.config.OpenAIBaseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(s.config.OpenAIBaseURL))
		}
		client := openai.NewClient(opts...)
		s.openai = &client
	}
	return s.openai
}

func (s *Service) generateWithClaude(ctx context.Context, model string, req interfaces.LLMRequest) (string, error) {
	messages, system, err := splitSystem(req)
	if err != nil {
		return "", err
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "assistant" {
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		claudeMessages = append(claudeMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  claudeMessages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := s.claudeClient().Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}
	return text.String(), nil
}

func (s *Service) generateWithGemini(ctx context.Context, model string, req interfaces.LLMRequest) (string, error) {
	client, err := s.geminiClient(ctx)
	if err != nil {
		return "", err
	}

	messages, system, err := splitSystem(req)
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}

func (s *Service) generateWithOpenAI(ctx context.Context, model string, req interfaces.LLMRequest) (string, error) {
	messages, system, err := splitSystem(req)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}
	if system != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(system))
	}
	for _, msg := range messages {
		if msg.Role == "assistant" {
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
			continue
		}
		params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}

	resp, err := s.openaiClient().Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI API")
	}
	return resp.Choices[0].Message.Content, nil
}
