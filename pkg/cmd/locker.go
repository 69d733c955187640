package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fluxion-dev/fluxion/pkg/lock"
)

// NewLocker creates the per-execution run locker. With a redis URL the lock
// is shared across worker processes; without one it only covers a single
// process, which is enough for development and tests.
func NewLocker(redisURL string) lock.KeyedLocker {
	if redisURL == "" {
		return lock.NewMemoryLocker()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis URL: %w", err))
	}

	return lock.NewRedisLocker(redis.NewClient(opts), "fluxion:execution")
}
