package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"healthchat-relay/internal/models"
)

// AnthropicService talks to Claude models through the Messages API.
type AnthropicService struct {
	client    *anthropic.Client
	modelName string
}

func NewAnthropicService(apiKey, modelName string) (*AnthropicService, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is empty")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicService{
		client:    &client,
		modelName: modelName,
	}, nil
}

func (s *AnthropicService) Name() string { return ProviderAnthropic }

func (s *AnthropicService) Close() error { return nil }

func (s *AnthropicService) Generate(ctx context.Context, req GenerateRequest) (models.Reply, error) {
	start := time.Now()
	msg, err := s.client.Messages.New(ctx, buildAnthropicParams(s.modelName, req))
	if err != nil {
		return models.Reply{}, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return models.Reply{
		Text:         text.String(),
		FinishReason: string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Latency:      time.Since(start),
	}, nil
}

func buildAnthropicParams(modelName string, req GenerateRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, t := range req.History {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == models.RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	g := req.Settings
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		Messages:  messages,
		MaxTokens: int64(g.MaxOutputTokens),
	}

	// Claude accepts temperature in [0, 1].
	temperature := float64(g.Temperature)
	if temperature > 1 {
		temperature = 1
	}
	params.Temperature = anthropic.Float(temperature)
	if g.TopP > 0 {
		params.TopP = anthropic.Float(float64(g.TopP))
	}
	if g.TopK > 0 {
		params.TopK = anthropic.Int(int64(g.TopK))
	}

	if strings.TrimSpace(req.SystemInstruction) != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.SystemInstruction,
			},
		}
	}
	return params
}
