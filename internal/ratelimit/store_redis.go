package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"vetcred/internal/platform/redis"
)

const keyPrefix = "vetcred:login_failures:"

// RedisStore implements the sliding window as a sorted set of failure
// timestamps scored by unix nanos, trimmed on every access. Keys expire one
// window after the last failure so idle sources cost nothing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, ts time.Time, window time.Duration) (int, error) {
	k := keyPrefix + key
	cutoff := ts.Add(-window).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, k, goredis.Z{
		Score:  float64(ts.UnixNano()),
		Member: fmt.Sprintf("%d", ts.UnixNano()),
	})
	card := pipe.ZCard(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return int(card.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, key string, ts time.Time, window time.Duration) (int, error) {
	k := keyPrefix + key
	cutoff := ts.Add(-window).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("%d", cutoff))
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return int(card.Val()), nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
