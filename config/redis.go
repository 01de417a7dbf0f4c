package config

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects to target, which is either host:port or a redis(s):// URL.
func InitRedis(target string) error {
	if target == "" {
		return errors.New("REDIS_ADDR (or REDIS_URL) is not set")
	}

	if strings.HasPrefix(target, "redis://") || strings.HasPrefix(target, "rediss://") {
		opt, err := redis.ParseURL(target)
		if err != nil {
			return err
		}
		RedisClient = redis.NewClient(opt)
	} else {
		RedisClient = redis.NewClient(&redis.Options{Addr: target})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		_ = RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}
