package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"healthchat-relay/internal/history"
	"healthchat-relay/internal/models"
)

const missingPromptMessage = `Missing "prompt" in request body`

type ChatOptions struct {
	Persona            models.Persona
	Window             history.Window
	ConcurrentRequests int
	Timeout            time.Duration
	Logger             *slog.Logger
}

// ChatService threads conversation history through model calls.
type ChatService struct {
	model    ModelClient
	store    history.Store
	window   history.Window
	persona  models.Persona
	timeout  time.Duration
	logger   *slog.Logger
	rateChan chan struct{} // Token bucket
}

func NewChatService(model ModelClient, store history.Store, opts ChatOptions) *ChatService {
	concurrent := opts.ConcurrentRequests
	if concurrent <= 0 {
		concurrent = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rateChan := make(chan struct{}, concurrent)
	for i := 0; i < concurrent; i++ {
		rateChan <- struct{}{}
	}

	return &ChatService{
		model:    model,
		store:    store,
		window:   opts.Window,
		persona:  opts.Persona,
		timeout:  opts.Timeout,
		logger:   logger,
		rateChan: rateChan,
	}
}

func (s *ChatService) Greeting() string {
	return s.persona.Greeting
}

// HandlePrompt sends prompt with the conversation's history as context and
// records the exchange. Both turns are appended together, and only after
// the model answered; a failed call leaves history untouched. Exchanges on
// the same conversation are serialized.
func (s *ChatService) HandlePrompt(ctx context.Context, conversationID, prompt string) (models.Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Reply{}, &ValidationError{Field: "prompt", Message: missingPromptMessage}
	}
	if err := history.ValidateConversationID(conversationID); err != nil {
		return models.Reply{}, &ValidationError{Field: "conversation_id", Message: "Invalid conversation_id"}
	}

	unlock, err := s.store.Lock(ctx, conversationID)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to lock conversation: %w", err)
	}
	defer unlock()

	turns, err := s.store.Turns(ctx, conversationID)
	if err != nil {
		return models.Reply{}, err
	}
	window, err := s.window.Fit(turns, prompt)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to fit context window: %w", err)
	}

	reply, err := s.generate(ctx, window, prompt)
	if err != nil {
		s.logger.Error("model call failed",
			"conversation_id", conversationID,
			"provider", s.model.Name(),
			"context_turns", len(window),
			"err", err,
		)
		return models.Reply{}, err
	}

	err = s.store.Append(ctx, conversationID,
		models.ConversationTurn{Role: models.RoleUser, Content: prompt},
		models.ConversationTurn{Role: models.RoleModel, Content: reply.Text},
	)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to record exchange: %w", err)
	}

	s.logger.Info("chat exchange completed",
		"conversation_id", conversationID,
		"provider", s.model.Name(),
		"context_turns", len(window),
		"dropped_turns", len(turns)-len(window),
		"input_tokens", reply.InputTokens,
		"output_tokens", reply.OutputTokens,
		"latency_ms", reply.Latency.Milliseconds(),
	)
	return reply, nil
}

// HandleStatelessPrompt answers a single prompt with no history.
func (s *ChatService) HandleStatelessPrompt(ctx context.Context, prompt string) (models.Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Reply{}, &ValidationError{Field: "userInput", Message: `Missing "userInput" in request body`}
	}

	reply, err := s.generate(ctx, nil, prompt)
	if err != nil {
		s.logger.Error("model call failed", "provider", s.model.Name(), "err", err)
		return models.Reply{}, err
	}
	return reply, nil
}

func (s *ChatService) History(ctx context.Context, conversationID string) ([]models.ConversationTurn, error) {
	if err := history.ValidateConversationID(conversationID); err != nil {
		return nil, &ValidationError{Field: "conversation_id", Message: "Invalid conversation_id"}
	}
	return s.store.Turns(ctx, conversationID)
}

func (s *ChatService) Reset(ctx context.Context, conversationID string) error {
	if err := history.ValidateConversationID(conversationID); err != nil {
		return &ValidationError{Field: "conversation_id", Message: "Invalid conversation_id"}
	}

	unlock, err := s.store.Lock(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to lock conversation: %w", err)
	}
	defer unlock()

	return s.store.Delete(ctx, conversationID)
}

func (s *ChatService) generate(ctx context.Context, turns []models.ConversationTurn, prompt string) (models.Reply, error) {
	if err := s.acquireRate(ctx); err != nil {
		return models.Reply{}, &UpstreamError{Provider: s.model.Name(), Err: err}
	}
	defer s.releaseRate()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.model.Generate(ctx, GenerateRequest{
		SystemInstruction: s.persona.SystemInstruction,
		Settings:          s.persona.Generation,
		History:           turns,
		Prompt:            prompt,
	})
	if err != nil {
		return models.Reply{}, &UpstreamError{Provider: s.model.Name(), Err: err}
	}
	if strings.TrimSpace(reply.Text) == "" {
		err := ErrEmptyReply
		if reply.FinishReason != "" {
			err = fmt.Errorf("%w (finish reason: %s)", ErrEmptyReply, reply.FinishReason)
		}
		return models.Reply{}, &UpstreamError{Provider: s.model.Name(), Err: err}
	}
	return reply, nil
}

// acquireRate blocks until a model slot is available
func (s *ChatService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatService) releaseRate() {
	s.rateChan <- struct{}{}
}
