package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"healthchat-relay/internal/models"
)

const geminiRoleModel = "model"

type GeminiService struct {
	client    *genai.Client
	modelName string
}

func NewGeminiService(apiKey, modelName string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is empty")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
	}, nil
}

func (s *GeminiService) Name() string { return ProviderGemini }

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Generate starts a chat session seeded with the rendered history and sends
// the prompt as the next user turn.
func (s *GeminiService) Generate(ctx context.Context, req GenerateRequest) (models.Reply, error) {
	model := s.client.GenerativeModel(s.modelName)
	applyGeminiSettings(model, req)

	cs := model.StartChat()
	cs.History = toGeminiHistory(req.History)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return models.Reply{}, fmt.Errorf("Gemini API error: %w", err)
	}

	reply := normalizeGeminiResponse(resp)
	reply.Latency = time.Since(start)
	if reply.FinishReason != "" && reply.FinishReason != genai.FinishReasonStop.String() {
		slog.Warn("gemini stopped early", "finish_reason", reply.FinishReason, "model", s.modelName)
	}
	return reply, nil
}

func applyGeminiSettings(model *genai.GenerativeModel, req GenerateRequest) {
	g := req.Settings
	model.SetTemperature(g.Temperature)
	model.SetTopP(g.TopP)
	if g.TopK > 0 {
		model.SetTopK(g.TopK)
	}
	model.SetMaxOutputTokens(g.MaxOutputTokens)
	model.ResponseMIMEType = g.ResponseMIMEType

	if strings.TrimSpace(req.SystemInstruction) != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}
}

func toGeminiHistory(turns []models.ConversationTurn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleModel {
			role = geminiRoleModel
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return history
}

// normalizeGeminiResponse flattens candidates into a single Reply so no
// caller ever touches the SDK response shape.
func normalizeGeminiResponse(resp *genai.GenerateContentResponse) models.Reply {
	var reply models.Reply
	if resp == nil {
		return reply
	}

	reply.Text = extractText(resp)
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		reply.FinishReason = resp.Candidates[0].FinishReason.String()
	}
	if resp.UsageMetadata != nil {
		reply.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		reply.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return reply
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}
