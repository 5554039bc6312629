package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"healthchat-relay/internal/models"
)

// LoadPersona reads a YAML persona file over the built-in defaults.
// Fields missing from the file keep their default values. An empty path
// returns the defaults.
func LoadPersona(path string) (models.Persona, error) {
	persona := models.DefaultPersona()
	if strings.TrimSpace(path) == "" {
		return persona, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return persona, fmt.Errorf("failed to read persona file: %w", err)
	}
	if err := yaml.Unmarshal(data, &persona); err != nil {
		return persona, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}

	if err := validateGeneration(persona.Generation); err != nil {
		return persona, fmt.Errorf("invalid persona file %s: %w", path, err)
	}
	return persona, nil
}

func validateGeneration(g models.GenerationSettings) error {
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", g.Temperature)
	}
	if g.TopP < 0 || g.TopP > 1 {
		return fmt.Errorf("top_p %.2f out of range [0, 1]", g.TopP)
	}
	if g.TopK < 0 {
		return fmt.Errorf("top_k must not be negative")
	}
	if g.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}
