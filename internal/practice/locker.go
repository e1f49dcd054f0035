package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultLockTTL = 5 * time.Second

// unlockScript deletes the key only while it still holds the caller's token.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// SubmitLocker serializes submissions for one session.
type SubmitLocker interface {
	Lock(ctx context.Context, sessionID uuid.UUID) (unlock func(), err error)
}

// RedisLocker holds a short SetNX lock per session. The repository's
// compare-and-advance stays the authoritative guard, so a Redis outage
// degrades to lock-free submission instead of failing it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "practice_lock").Logger(),
	}
}

func lockKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("practice:lock:%s", sessionID.String())
}

// Lock returns ErrSequence when another submission holds the lock.
func (l *RedisLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		l.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("submit lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !acquired {
		return nil, fmt.Errorf("%w: another submission for this session is in progress", ErrSequence)
	}

	unlock := func() {
		if err := l.client.Eval(context.WithoutCancel(ctx), unlockScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("submit lock release failed")
		}
	}
	return unlock, nil
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uuid.UUID) (func(), error) { return func() {}, nil }
