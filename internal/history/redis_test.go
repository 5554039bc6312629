package history

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, opts RedisOptions) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts), mr
}

func TestRedisStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, RedisOptions{})

	turns, err := s.Turns(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, turns)

	require.NoError(t, s.Append(ctx, "a", pair("What is hypertension?", "High blood pressure.")...))
	require.NoError(t, s.Append(ctx, "a", pair("Is it serious?", "It can be.")...))

	turns, err = s.Turns(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, append(pair("What is hypertension?", "High blood pressure."), pair("Is it serious?", "It can be.")...), turns)
}

func TestRedisStore_CapAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, RedisOptions{MaxTurns: 2, TTL: time.Minute})

	require.NoError(t, s.Append(ctx, "a", pair("q1", "a1")...))
	require.NoError(t, s.Append(ctx, "a", pair("q2", "a2")...))

	turns, err := s.Turns(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, pair("q2", "a2"), turns)
	require.Equal(t, time.Minute, mr.TTL(historyKey("a")))

	mr.FastForward(2 * time.Minute)
	turns, err = s.Turns(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestRedisStore_RejectsUnpairedAppend(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, RedisOptions{})

	err := s.Append(ctx, "a", pair("q", "a")[0])
	require.ErrorIs(t, err, ErrOddAppend)
	require.False(t, mr.Exists(historyKey("a")))
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, RedisOptions{})

	require.NoError(t, s.Append(ctx, "a", pair("q", "a")...))
	require.NoError(t, s.Delete(ctx, "a"))
	require.False(t, mr.Exists(historyKey("a")))
}

func TestRedisStore_LockExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, RedisOptions{LockTTL: time.Minute, LockWait: 100 * time.Millisecond})

	unlock, err := s.Lock(ctx, "a")
	require.NoError(t, err)
	require.True(t, mr.Exists(lockKey("a")))

	_, err = s.Lock(ctx, "a")
	require.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	require.False(t, mr.Exists(lockKey("a")))

	unlock2, err := s.Lock(ctx, "a")
	require.NoError(t, err)
	unlock2()
}

func TestRedisStore_UnlockDoesNotReleaseForeignLock(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, RedisOptions{LockTTL: time.Minute})

	unlock, err := s.Lock(ctx, "a")
	require.NoError(t, err)

	// Simulate expiry and takeover by another replica.
	mr.Del(lockKey("a"))
	require.NoError(t, mr.Set(lockKey("a"), "someone-else"))

	unlock()
	got, err := mr.Get(lockKey("a"))
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedisStore_FailedReleaseIsLogged(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	s, mr := newTestRedisStore(t, RedisOptions{
		LockTTL: time.Minute,
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	})

	unlock, err := s.Lock(ctx, "a")
	require.NoError(t, err)

	mr.SetError("ERR server unavailable")
	unlock()
	mr.SetError("")

	require.Contains(t, logs.String(), "failed to release conversation lock")
	require.Contains(t, logs.String(), "conversation_id=a")
	require.True(t, mr.Exists(lockKey("a")))
}
