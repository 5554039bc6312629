package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"healthchat-relay/internal/models"
)

func TestToGeminiHistory_AlternatesRoles(t *testing.T) {
	turns := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "What is hypertension?"},
		{Role: models.RoleModel, Content: "High blood pressure."},
		{Role: models.RoleUser, Content: "Is it dangerous?"},
		{Role: models.RoleModel, Content: "It can be."},
	}

	got := toGeminiHistory(turns)
	require.Len(t, got, len(turns))
	for i, c := range got {
		want := "user"
		if i%2 == 1 {
			want = "model"
		}
		require.Equal(t, want, c.Role)
		require.Equal(t, []genai.Part{genai.Text(turns[i].Content)}, c.Parts)
	}
}

func TestToGeminiHistory_Empty(t *testing.T) {
	require.Empty(t, toGeminiHistory(nil))
}

func TestApplyGeminiSettings(t *testing.T) {
	model := &genai.GenerativeModel{}
	applyGeminiSettings(model, GenerateRequest{
		SystemInstruction: "be kind",
		Settings:          models.DefaultGenerationSettings(),
	})

	require.NotNil(t, model.Temperature)
	require.InDelta(t, 1.0, *model.Temperature, 1e-6)
	require.InDelta(t, 0.95, *model.TopP, 1e-6)
	require.EqualValues(t, 64, *model.TopK)
	require.EqualValues(t, 8192, *model.MaxOutputTokens)
	require.Equal(t, "text/plain", model.ResponseMIMEType)
	require.NotNil(t, model.SystemInstruction)
	require.Equal(t, []genai.Part{genai.Text("be kind")}, model.SystemInstruction.Parts)
}

func TestApplyGeminiSettings_NoInstruction(t *testing.T) {
	model := &genai.GenerativeModel{}
	applyGeminiSettings(model, GenerateRequest{Settings: models.GenerationSettings{MaxOutputTokens: 10}})

	require.Nil(t, model.SystemInstruction)
	require.Nil(t, model.TopK)
}

func TestNormalizeGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  "model",
					Parts: []genai.Part{genai.Text("Drink water, "), genai.Text("rest well.")},
				},
				FinishReason: genai.FinishReasonStop,
			},
		},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 5},
	}

	reply := normalizeGeminiResponse(resp)
	require.Equal(t, "Drink water, rest well.", reply.Text)
	require.Equal(t, genai.FinishReasonStop.String(), reply.FinishReason)
	require.Equal(t, 12, reply.InputTokens)
	require.Equal(t, 5, reply.OutputTokens)
}

func TestNormalizeGeminiResponse_NoCandidates(t *testing.T) {
	reply := normalizeGeminiResponse(&genai.GenerateContentResponse{})
	require.Empty(t, reply.Text)
	require.Empty(t, reply.FinishReason)

	require.Equal(t, models.Reply{}, normalizeGeminiResponse(nil))
}

func TestExtractText_SkipsNilContent(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil, FinishReason: genai.FinishReasonSafety},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ok")}}},
		},
	}
	require.Equal(t, "ok", extractText(resp))
}

func TestNewGeminiService_RequiresKey(t *testing.T) {
	_, err := NewGeminiService("", "gemini-1.5-pro")
	require.Error(t, err)
}
