package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements domain.CacheStore on plain Redis strings.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore constructs the store over any redis client, ring or cluster.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the value under key. A missing key is ok=false with no error.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r == nil || r.client == nil {
		return "", false, errors.New("redis cache not configured")
	}
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set writes the value and its expiry as two commands. They share one
// pipeline so EXPIRE never reaches the server ahead of SET; both replies
// are checked.
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r == nil || r.client == nil {
		return errors.New("redis cache not configured")
	}
	var (
		setCmd    *redis.StatusCmd
		expireCmd *redis.BoolCmd
	)
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		setCmd = p.Set(ctx, key, value, 0)
		expireCmd = p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := setCmd.Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	ok, err := expireCmd.Result()
	if err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis expire: key %s vanished before expiry was set", key)
	}
	return nil
}
