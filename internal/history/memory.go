package history

import (
	"context"
	"sync"
	"time"

	"healthchat-relay/internal/models"
)

type conversation struct {
	turns    []models.ConversationTurn
	lastSeen time.Time
}

// MemoryStore keeps history in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxTurns      int
	locks         *keyedLocker
	now           func() time.Time
}

// NewMemoryStore creates a store capped at maxTurns per conversation
// (rounded up to whole pairs, 0 for no cap).
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*conversation),
		maxTurns:      evenCap(maxTurns),
		locks:         newKeyedLocker(),
		now:           time.Now,
	}
}

func (s *MemoryStore) Turns(ctx context.Context, conversationID string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return []models.ConversationTurn{}, nil
	}
	out := make([]models.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, turns ...models.ConversationTurn) error {
	if err := validatePairs(turns); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		c = &conversation{}
		s.conversations[conversationID] = c
	}
	c.turns = append(c.turns, turns...)
	if s.maxTurns > 0 && len(c.turns) > s.maxTurns {
		// Copy so the dropped prefix can be collected.
		kept := make([]models.ConversationTurn, s.maxTurns)
		copy(kept, c.turns[len(c.turns)-s.maxTurns:])
		c.turns = kept
	}
	c.lastSeen = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.conversations, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Lock(ctx context.Context, conversationID string) (func(), error) {
	return s.locks.Lock(ctx, conversationID)
}

// Sweep drops conversations untouched for longer than idle and returns how
// many were removed. Conversations with an exchange in flight are kept.
// A non-positive idle disables eviction.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.conversations {
		if c.lastSeen.After(cutoff) || s.locks.held(id) {
			continue
		}
		delete(s.conversations, id)
		removed++
	}
	return removed
}

// Len reports the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
