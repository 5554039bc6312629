package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"healthchat-relay/internal/models"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-1.5-pro",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderLorem:     "lorem-fast",
}

type Config struct {
	// Server
	Port       string
	Env        string
	CORSOrigin string

	// Model
	ModelProvider       string
	ModelName           string
	GeminiAPIKey        string
	AnthropicAPIKey     string
	ModelConcurrentReqs int
	ModelTimeout        time.Duration
	PersonaFile         string
	Persona             models.Persona

	// History
	HistoryBackend   string
	RedisURL         string
	HistoryMaxTurns  int
	HistoryMaxTokens int
	HistoryTTL       time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderGemini))
	if _, ok := defaultModels[provider]; !ok {
		panic(fmt.Sprintf("unsupported MODEL_PROVIDER %q", provider))
	}

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "3000"),
		Env:                 getEnvOrDefault("ENV", "development"),
		CORSOrigin:          getEnvOrDefault("CORS_ORIGIN", "*"),
		ModelProvider:       provider,
		ModelName:           getEnvOrDefault("MODEL_NAME", defaultModels[provider]),
		ModelConcurrentReqs: getEnvAsIntOrDefault("MODEL_CONCURRENT_REQUESTS", 5),
		ModelTimeout:        time.Duration(getEnvAsIntOrDefault("MODEL_TIMEOUT_SECONDS", 120)) * time.Second,
		PersonaFile:         getEnvOrDefault("PERSONA_FILE", ""),
		HistoryBackend:      strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", BackendMemory)),
		HistoryMaxTurns:     getEnvAsIntOrDefault("HISTORY_MAX_TURNS", 40),
		HistoryMaxTokens:    getEnvAsIntOrDefault("HISTORY_MAX_TOKENS", 30000),
		HistoryTTL:          time.Duration(getEnvAsIntOrDefault("HISTORY_TTL_MINUTES", 60)) * time.Minute,
	}

	switch provider {
	case ProviderGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	case ProviderAnthropic:
		cfg.AnthropicAPIKey = mustGetEnv("ANTHROPIC_API_KEY")
	}

	switch cfg.HistoryBackend {
	case BackendMemory:
	case BackendRedis:
		cfg.RedisURL = mustGetEnv("REDIS_URL")
	default:
		panic(fmt.Sprintf("unsupported HISTORY_BACKEND %q", cfg.HistoryBackend))
	}

	persona, err := LoadPersona(cfg.PersonaFile)
	if err != nil {
		panic(err.Error())
	}
	cfg.Persona = persona

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
