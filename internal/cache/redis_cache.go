package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/mockinterview/internal/utils"
)

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	const op = "RedisCache.GetJSON"
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "redis get failed", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// corrupt entry: drop it and report a miss
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	const op = "RedisCache.SetJSON"
	b, err := json.Marshal(val)
	if err != nil {
		return utils.E(utils.CodeInvalidArgument, op, "value is not serialisable", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "redis set failed", err)
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, "RedisCache.Del", "redis del failed", err)
	}
	return nil
}
