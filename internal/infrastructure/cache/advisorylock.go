// Package cache holds the redis-backed coordination primitives shared by
// the scheduler and the consolidator.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

const lockKeyPrefix = "ledgersync:lock:"

// unlockScript deletes the lock only while it still holds our token, so a
// holder that outlived its TTL cannot release the next holder's lock.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisAdvisoryLock implements best-effort mutual exclusion with SET NX and
// a TTL. The TTL bounds how long a crashed holder can block others; holders
// are expected to finish well inside it.
type RedisAdvisoryLock struct {
	client *redis.Client
	logger logger.Interface

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisAdvisoryLock(client *redis.Client, logger logger.Interface) *RedisAdvisoryLock {
	return &RedisAdvisoryLock{
		client: client,
		logger: logger,
		tokens: make(map[string]string),
	}
}

func (l *RedisAdvisoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire advisory lock %s: %w", key, err)
	}
	if acquired {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return acquired, nil
}

func (l *RedisAdvisoryLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		// Never acquired by this instance; nothing to release.
		return nil
	}

	released, err := l.client.Eval(ctx, unlockScript, []string{lockKeyPrefix + key}, token).Result()
	if err != nil {
		return fmt.Errorf("failed to release advisory lock %s: %w", key, err)
	}
	if n, _ := released.(int64); n == 0 {
		l.logger.Warnw("advisory lock expired before release", "key", key)
	}
	return nil
}
