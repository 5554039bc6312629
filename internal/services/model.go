package services

import (
	"context"
	"fmt"

	"healthchat-relay/internal/models"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// GenerateRequest is everything a backend needs for one model invocation.
// History is rendered in append order and Prompt is the new user turn.
type GenerateRequest struct {
	SystemInstruction string
	Settings          models.GenerationSettings
	History           []models.ConversationTurn
	Prompt            string
}

// ModelClient is an external generative model. Implementations normalize
// the provider's response into a models.Reply before returning.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (models.Reply, error)
	Name() string
	Close() error
}

// NewModelClient builds the backend for provider.
func NewModelClient(provider, modelName, apiKey string) (ModelClient, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiService(apiKey, modelName)
	case ProviderAnthropic:
		return NewAnthropicService(apiKey, modelName)
	case ProviderLorem:
		return NewLoremService(modelName), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", provider)
	}
}
