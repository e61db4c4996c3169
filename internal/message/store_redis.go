package message

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dedup:"

// RedisStore keeps one sorted set per dedup key, scored by send time.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key, hash string, window time.Duration, now time.Time) (bool, error) {
	k := redisKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	var added *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", cutoff)
		added = pipe.ZAddNX(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: hash})
		pipe.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis claim %s: %w", key, err)
	}
	return added.Val() == 1, nil
}

func (s *RedisStore) Release(ctx context.Context, key, hash string) error {
	if err := s.client.ZRem(ctx, redisKeyPrefix+key, hash).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return iter.Err()
}
