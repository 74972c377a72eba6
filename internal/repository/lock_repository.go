package repository

import (
	"context"
	"time"

	"beatmarket/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository provides short lived mutual exclusion keyed by name.
type LockRepository interface {
	// Acquire returns a release func when the lock was taken, or ok=false when
	// someone else holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type lockRepository struct {
	redisClient *redis.Client
}

func NewLockRepository(redisClient *redis.Client) LockRepository {
	return &lockRepository{redisClient: redisClient}
}

func (r *lockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := "lock:" + name
	token := uuid.NewString()
	ok, err := r.redisClient.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// a fresh context so a cancelled request still releases
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.redisClient, []string{key}, token).Err(); err != nil {
			log.Warnw("[Lock] failed to release lock, it expires with its ttl", "key", key, "error", err)
		}
	}
	return release, true, nil
}
