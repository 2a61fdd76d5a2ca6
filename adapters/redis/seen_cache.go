// Package redis provides an adapter to redis client
package redis

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// SeenCache remembers hint hashes across stream consumers sharing one redis
type SeenCache struct {
	client         *redis.Client
	expireDuration time.Duration
	keyPrefix      string
}

func NewSeenCache(client *redis.Client, expireDuration time.Duration, keyPrefix string) *SeenCache {
	return &SeenCache{
		client:         client,
		expireDuration: expireDuration,
		keyPrefix:      keyPrefix,
	}
}

// MarkSeen returns true if the hash was not seen within the expire duration
func (c *SeenCache) MarkSeen(ctx context.Context, hash common.Hash) (bool, error) {
	return c.client.SetNX(ctx, c.keyPrefix+hash.Hex(), 1, c.expireDuration).Result()
}
