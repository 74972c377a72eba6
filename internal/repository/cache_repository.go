package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheRepository stores JSON encoded values in Redis.
type CacheRepository interface {
	// GetJSON decodes the cached value into dest and reports whether it was present.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheRepository struct {
	redisClient *redis.Client
}

func NewCacheRepository(redisClient *redis.Client) CacheRepository {
	return &cacheRepository{redisClient: redisClient}
}

func (r *cacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := r.redisClient.Get(ctx, "cache:"+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *cacheRepository) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, "cache:"+key, raw, ttl).Err()
}
