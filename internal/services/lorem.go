package services

import (
	"context"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"

	"healthchat-relay/internal/models"
)

// maxLoremWords keeps offline replies short regardless of max_output_tokens.
const maxLoremWords = 120

// LoremService is an offline backend for local development. It needs no API
// key and answers with lorem ipsum text.
type LoremService struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	modelName string
	delay     time.Duration
}

func NewLoremService(modelName string) *LoremService {
	return &LoremService{
		generator: loremgen.New(),
		modelName: modelName,
		delay:     loremDelay(modelName),
	}
}

// loremDelay simulates upstream latency based on the model name.
func loremDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "slow"):
		return 2 * time.Second
	case strings.Contains(model, "instant"):
		return 0
	default:
		return 200 * time.Millisecond
	}
}

func (s *LoremService) Name() string { return ProviderLorem }

func (s *LoremService) Close() error { return nil }

func (s *LoremService) Generate(ctx context.Context, req GenerateRequest) (models.Reply, error) {
	start := time.Now()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.Reply{}, ctx.Err()
		}
	}

	// Estimate: 1 token ≈ 4 characters ≈ 0.75 words
	targetWords := int(req.Settings.MaxOutputTokens) * 3 / 4
	if targetWords <= 0 || targetWords > maxLoremWords {
		targetWords = maxLoremWords
	}
	text := s.generateWords(targetWords)

	inputWords := len(strings.Fields(req.Prompt))
	for _, t := range req.History {
		inputWords += len(strings.Fields(t.Content))
	}

	return models.Reply{
		Text:         text,
		FinishReason: "STOP",
		InputTokens:  inputWords,
		OutputTokens: len(strings.Fields(text)),
		Latency:      time.Since(start),
	}, nil
}

func (s *LoremService) generateWords(targetWords int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	wordCount := 0
	for wordCount < targetWords {
		sentence := s.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		wordCount += len(strings.Fields(sentence))
	}
	return strings.TrimSpace(sb.String())
}
