package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"healthchat-relay/internal/models"
)

const (
	historyKeyPrefix = "chat_history:"
	lockKeyPrefix    = "chat_lock:"
)

var ErrLockTimeout = errors.New("history: timed out waiting for conversation lock")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps each conversation as a Redis list of JSON turns so that
// several relay replicas can share it. Keys expire after ttl of inactivity.
type RedisStore struct {
	client    *redis.Client
	maxTurns  int
	ttl       time.Duration
	lockTTL   time.Duration
	lockRetry time.Duration
	lockWait  time.Duration
	logger    *slog.Logger
}

type RedisOptions struct {
	MaxTurns int
	TTL      time.Duration
	// LockTTL bounds how long a crashed holder can block a conversation.
	LockTTL time.Duration
	// LockWait bounds how long Lock waits before giving up.
	LockWait time.Duration
	Logger   *slog.Logger
}

func NewRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 3 * time.Minute
	}
	if opts.LockWait <= 0 {
		opts.LockWait = opts.LockTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RedisStore{
		client:    client,
		maxTurns:  evenCap(opts.MaxTurns),
		ttl:       opts.TTL,
		lockTTL:   opts.LockTTL,
		lockRetry: 50 * time.Millisecond,
		lockWait:  opts.LockWait,
		logger:    opts.Logger,
	}
}

func historyKey(conversationID string) string {
	return historyKeyPrefix + conversationID
}

func lockKey(conversationID string) string {
	return lockKeyPrefix + conversationID
}

func (s *RedisStore) Turns(ctx context.Context, conversationID string) ([]models.ConversationTurn, error) {
	raw, err := s.client.LRange(ctx, historyKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var t models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to decode history turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, turns ...models.ConversationTurn) error {
	if err := validatePairs(turns); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode history turn: %w", err)
		}
		values = append(values, string(data))
	}

	key := historyKey(conversationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, historyKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, conversationID string) (func(), error) {
	key := lockKey(conversationID)
	token := uuid.NewString()
	deadline := time.Now().Add(s.lockWait)

	for {
		locked, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire conversation lock: %w", err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.lockRetry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled here.
			err := releaseScript.Run(context.Background(), s.client, []string{key}, token).Err()
			if err != nil {
				s.logger.Error("failed to release conversation lock",
					"conversation_id", conversationID,
					"lock_ttl", s.lockTTL,
					"err", err,
				)
			}
		})
	}, nil
}
