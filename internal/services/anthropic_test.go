package services

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/require"

	"healthchat-relay/internal/models"
)

func TestBuildAnthropicParams_RendersHistoryThenPrompt(t *testing.T) {
	req := GenerateRequest{
		SystemInstruction: "be kind",
		Settings:          models.DefaultGenerationSettings(),
		History: []models.ConversationTurn{
			{Role: models.RoleUser, Content: "I feel dizzy"},
			{Role: models.RoleModel, Content: "Since when?"},
		},
		Prompt: "This morning",
	}

	params := buildAnthropicParams("claude-3-5-haiku-latest", req)

	require.Equal(t, anthropic.Model("claude-3-5-haiku-latest"), params.Model)
	require.EqualValues(t, 8192, params.MaxTokens)
	require.Len(t, params.Messages, 3)

	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	wantText := []string{"I feel dizzy", "Since when?", "This morning"}
	for i, msg := range params.Messages {
		require.Equal(t, wantRoles[i], msg.Role)
		require.Len(t, msg.Content, 1)
		require.NotNil(t, msg.Content[0].OfText)
		require.Equal(t, wantText[i], msg.Content[0].OfText.Text)
	}

	require.Len(t, params.System, 1)
	require.Equal(t, "be kind", params.System[0].Text)
}

func TestBuildAnthropicParams_ClampsTemperature(t *testing.T) {
	settings := models.DefaultGenerationSettings()
	settings.Temperature = 1.7

	params := buildAnthropicParams("claude-x", GenerateRequest{Settings: settings, Prompt: "hi"})
	require.InDelta(t, 1.0, params.Temperature.Value, 1e-9)
	require.EqualValues(t, 64, params.TopK.Value)
	require.Empty(t, params.System)
}

func TestNewAnthropicService_RequiresKey(t *testing.T) {
	_, err := NewAnthropicService("", "claude-x")
	require.Error(t, err)
}
