package history

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"healthchat-relay/internal/models"
)

// perTurnOverhead approximates the role framing tokens added per message.
const perTurnOverhead = 8

// TokenCounter estimates how many tokens a set of turns costs upstream.
type TokenCounter interface {
	Count(turns []models.ConversationTurn) (int, error)
}

// TiktokenCounter counts with the cl100k_base encoding. It is an estimate
// for non-OpenAI models but errs on the safe side for English text.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("couldn't get tokenizer: %w", err)
	}
	return &TiktokenCounter{codec: enc}, nil
}

func (c *TiktokenCounter) Count(turns []models.ConversationTurn) (int, error) {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	ids, _, err := c.codec.Encode(b.String())
	if err != nil {
		return 0, fmt.Errorf("couldn't count tokens: %w", err)
	}
	return len(ids) + len(turns)*perTurnOverhead, nil
}

// Window trims history to a token budget that also covers the new prompt.
type Window struct {
	MaxTokens int
	Counter   TokenCounter
}

// Fit returns the newest suffix of history that, together with prompt,
// fits MaxTokens. Whole user/model pairs are dropped from the front so the
// result still starts with a user turn. A zero budget or nil counter
// disables trimming.
func (w Window) Fit(history []models.ConversationTurn, prompt string) ([]models.ConversationTurn, error) {
	history = alignToUser(history)
	if w.MaxTokens <= 0 || w.Counter == nil {
		return history, nil
	}

	promptTurn := models.ConversationTurn{Role: models.RoleUser, Content: prompt}
	for {
		tokens, err := w.Counter.Count(append(history[:len(history):len(history)], promptTurn))
		if err != nil {
			return nil, err
		}
		if tokens <= w.MaxTokens || len(history) == 0 {
			return history, nil
		}
		if len(history) >= 2 {
			history = history[2:]
		} else {
			history = history[1:]
		}
	}
}

func alignToUser(history []models.ConversationTurn) []models.ConversationTurn {
	for len(history) > 0 && history[0].Role != models.RoleUser {
		history = history[1:]
	}
	return history
}
