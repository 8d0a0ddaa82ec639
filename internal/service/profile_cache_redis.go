package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProfileCache stores pages under hashed keys and tracks them in a
// per-recipient set so Invalidate can delete them together.
type RedisProfileCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisProfileCache(client redis.UniversalClient, prefix string) *RedisProfileCache {
	if prefix == "" {
		prefix = "profile_cache"
	}
	return &RedisProfileCache{client: client, prefix: prefix}
}

func (c *RedisProfileCache) Get(ctx context.Context, recipientID, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.pageKey(recipientID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, recipientID, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	pageKey := c.pageKey(recipientID, key)
	index := c.indexKey(recipientID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, pageKey, value, ttl)
	pipe.SAdd(ctx, index, pageKey)
	pipe.Expire(ctx, index, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, recipientID string) error {
	index := c.indexKey(recipientID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisProfileCache) pageKey(recipientID, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:page:%s:%s", c.prefix, recipientID, hex.EncodeToString(sum[:]))
}

func (c *RedisProfileCache) indexKey(recipientID string) string {
	return fmt.Sprintf("%s:index:%s", c.prefix, recipientID)
}
