package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"healthchat-relay/internal/models"
)

func writePersona(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPersona_EmptyPathReturnsDefaults(t *testing.T) {
	persona, err := LoadPersona("")
	require.NoError(t, err)
	require.Equal(t, models.DefaultPersona(), persona)
}

func TestLoadPersona_OverridesOnlyGivenFields(t *testing.T) {
	path := writePersona(t, `
greeting: "Hi there"
generation:
  temperature: 0.4
  top_k: 32
`)

	persona, err := LoadPersona(path)
	require.NoError(t, err)
	require.Equal(t, "Hi there", persona.Greeting)
	require.Equal(t, models.DefaultSystemInstruction, persona.SystemInstruction)
	require.InDelta(t, 0.4, persona.Generation.Temperature, 1e-6)
	require.EqualValues(t, 32, persona.Generation.TopK)
	require.InDelta(t, 0.95, persona.Generation.TopP, 1e-6)
	require.EqualValues(t, 8192, persona.Generation.MaxOutputTokens)
	require.Equal(t, "text/plain", persona.Generation.ResponseMIMEType)
}

func TestLoadPersona_RejectsOutOfRangeSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"temperature too high", "generation:\n  temperature: 3\n"},
		{"top_p above one", "generation:\n  top_p: 1.5\n"},
		{"negative top_k", "generation:\n  top_k: -1\n"},
		{"zero max tokens", "generation:\n  max_output_tokens: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPersona(writePersona(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestLoadPersona_MissingFile(t *testing.T) {
	_, err := LoadPersona(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadPersona_MalformedYAML(t *testing.T) {
	_, err := LoadPersona(writePersona(t, "generation: [not, a, map"))
	require.Error(t, err)
}
