package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eventhub/internal/domain"
)

const (
	keyPrefix     = "eventhub:lock:"
	retryInterval = 50 * time.Millisecond
	releaseBudget = 2 * time.Second
)

// unlockScript deletes the key only while it still holds our token.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// RedisClient is the subset of *redis.Client the locker needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

type redisLocker struct {
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker returns a ScheduleLocker shared by every API instance using the same Redis.
// ttl bounds how long a crashed holder can block a scope.
func NewRedisLocker(client RedisClient, ttl time.Duration, logger *slog.Logger) domain.ScheduleLocker {
	return &redisLocker{client: client, ttl: ttl, logger: logger.With("component", "schedule_lock")}
}

// Acquire polls SET NX until the scope is free or ctx ends.
func (l *redisLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	key := keyPrefix + scope
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", scope, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", scope, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

func (l *redisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseBudget)
	defer cancel()
	n, err := l.client.Eval(ctx, unlockScript, []string{key}, token).Int64()
	if err != nil {
		l.logger.Error("failed to release lock", "key", key, "error", err)
		return
	}
	if n == 0 {
		l.logger.Warn("lock expired before release", "key", key)
	}
}
