package lock

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/raffle/common/redis"
	goredis "github.com/redis/go-redis/v9"
)

//go:embed release.lua
var releaseScript string

// RedisLocker holds locks as Redis keys so that several service
// instances share one generation lock
type RedisLocker struct {
	client *redis.Client
	script *goredis.Script
	prefix string
	logger redis.Logger
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client *redis.Client, logger redis.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		script: goredis.NewScript(releaseScript),
		prefix: "lock:",
		logger: logger,
	}
}

// Acquire sets the key with SETNX and a random owner token
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	redisKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		l.logger.Warn("lock already held", "key", key)
		return nil, ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release must outlive a cancelled request context
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			if _, err := l.client.RunScript(releaseCtx, l.script, []string{redisKey}, token); err != nil {
				l.logger.Error("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
