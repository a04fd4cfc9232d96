package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps OTP state in redis so every instance sees the same
// codes and attempt counts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, key, code string, ttl time.Duration) error {
	return s.client.Set(ctx, key, code, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *RedisStore) IncrAttempts(ctx context.Context, key string, ttl time.Duration) (int, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First attempt sets the window; later ones inherit it.
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return int(count), err
		}
	}
	return int(count), nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
