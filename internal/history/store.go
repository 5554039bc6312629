// Package history keeps conversation-keyed chat history and trims it to the
// context window sent upstream.
package history

import (
	"context"
	"errors"
	"regexp"
	"time"

	"healthchat-relay/internal/models"
)

var (
	ErrInvalidConversationID = errors.New("history: invalid conversation id")
	ErrOddAppend             = errors.New("history: turns must be appended as user/model pairs")
)

var conversationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Store is a conversation-keyed, append-only turn log.
//
// Lock serializes exchanges within one conversation. The returned unlock
// func is safe to call more than once.
type Store interface {
	Turns(ctx context.Context, conversationID string) ([]models.ConversationTurn, error)
	Append(ctx context.Context, conversationID string, turns ...models.ConversationTurn) error
	Delete(ctx context.Context, conversationID string) error
	Lock(ctx context.Context, conversationID string) (func(), error)
}

// Sweeper is implemented by stores that need idle conversations evicted
// by a background worker.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

func ValidateConversationID(id string) error {
	if !conversationIDPattern.MatchString(id) {
		return ErrInvalidConversationID
	}
	return nil
}

// evenCap rounds a turn cap up to a whole number of user/model pairs.
func evenCap(n int) int {
	if n <= 0 {
		return 0
	}
	if n%2 == 1 {
		return n + 1
	}
	return n
}

func validatePairs(turns []models.ConversationTurn) error {
	if len(turns)%2 != 0 {
		return ErrOddAppend
	}
	for i, t := range turns {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleModel
		}
		if t.Role != want {
			return ErrOddAppend
		}
	}
	return nil
}
