package service

import (
	"fmt"
	"log/slog"
	"time"

	"context"

	"github.com/redis/go-redis/v9"
)

// RedisFollowLookupCache is the shared-cache variant for deployments where
// several instances serve the same graph. Entries live under one hash-free
// key per viewer/subject pair plus a per-viewer index set used for
// invalidation, mirroring the record layout in the redis store.
type RedisFollowLookupCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisFollowLookupCache(client redis.UniversalClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisFollowLookupCache {
	if prefix == "" {
		prefix = "follow_lookup"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisFollowLookupCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisFollowLookupCache) Get(ctx context.Context, viewerID, subjectID string) (bool, bool) {
	if c.client == nil {
		return false, false
	}
	val, err := c.client.Get(ctx, c.pairKey(viewerID, subjectID)).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "follow lookup cache get failed", "error", err)
		return false, false
	}
	return true, val == "1"
}

func (c *RedisFollowLookupCache) Set(ctx context.Context, viewerID, subjectID string, following bool) {
	if c.client == nil {
		return
	}
	val := "0"
	if following {
		val = "1"
	}
	pairKey := c.pairKey(viewerID, subjectID)
	viewerIndex := c.viewerIndexKey(viewerID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, pairKey, val, c.ttl)
	pipe.SAdd(ctx, viewerIndex, pairKey)
	pipe.Expire(ctx, viewerIndex, c.ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "follow lookup cache set failed", "error", err)
	}
}

func (c *RedisFollowLookupCache) Invalidate(ctx context.Context, viewerID string) {
	if c.client == nil {
		return
	}
	viewerIndex := c.viewerIndexKey(viewerID)
	keys, err := c.client.SMembers(ctx, viewerIndex).Result()
	if err != nil && err != redis.Nil {
		c.logger.WarnContext(ctx, "follow lookup cache invalidate failed", "error", err)
		return
	}
	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, viewerIndex)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "follow lookup cache invalidate failed", "error", err)
	}
}

func (c *RedisFollowLookupCache) pairKey(viewerID, subjectID string) string {
	return fmt.Sprintf("%s:pair:%s:%s", c.prefix, viewerID, subjectID)
}

func (c *RedisFollowLookupCache) viewerIndexKey(viewerID string) string {
	return fmt.Sprintf("%s:index:%s", c.prefix, viewerID)
}
