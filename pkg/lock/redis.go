package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL      = 30 * time.Second
	refreshInterval = 10 * time.Second
)

// releaseScript deletes the key only when the caller still owns it, so an
// expired lock taken over by another worker is never released by the old one.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker is a KeyedLocker backed by Redis SET NX with a TTL. Held locks
// are refreshed in the background; a crashed worker's lock expires on its
// own, letting another worker pick the execution up.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a Redis backed keyed locker.
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: defaultTTL}
}

func (l *RedisLocker) key(key string) string {
	return l.prefix + ":lock:" + key
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	owner := uuid.New().String()
	redisKey := l.key(key)

	ok, err := l.client.SetNX(ctx, redisKey, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if !ok {
		return nil, ErrAlreadyLocked
	}

	refreshCtx, stopRefresh := context.WithCancel(context.WithoutCancel(ctx))

	go l.refresh(refreshCtx, redisKey, owner)

	var once sync.Once

	return func() {
		once.Do(func() {
			stopRefresh()

			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, owner).Err()
		})
	}, nil
}

func (l *RedisLocker) refresh(ctx context.Context, redisKey, owner string) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Re-extend only while we still own the key.
			current, err := l.client.Get(ctx, redisKey).Result()
			if err != nil || current != owner {
				return
			}

			_ = l.client.Expire(ctx, redisKey, l.ttl).Err()
		}
	}
}
