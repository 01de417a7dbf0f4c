// Package cache stores small JSON documents (progress flags) with a TTL.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	// ttl <= 0 stores without expiry
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Key namespaces progress keys per candidate profile.
func Key(parts ...string) string {
	k := "mockinterview"
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
