// Package cache is a short-TTL memoization table for normalized upstream
// responses, keyed by a deterministic serialization of the request parameters.
// Mutations invalidate a whole resource explicitly; there is no implicit
// dependency tracking.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, prefix: "cache:", ttl: ttl}
}

// Key canonicalizes request parameters: keys sorted, blank values dropped, so
// equivalent requests hit the same entry regardless of parameter order.
func Key(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) redisKey(resource, key string) string {
	return c.prefix + resource + ":" + key
}

// Get returns a cached payload. Cache errors are reported as misses.
func (c *Cache) Get(ctx context.Context, resource, key string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, c.redisKey(resource, key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: get %s: %v", resource, err)
		return nil, false
	}
	return payload, true
}

// Set stores a payload under the resource's keyspace. Failures are logged and
// swallowed: the cache is an optimization, never a correctness dependency.
func (c *Cache) Set(ctx context.Context, resource, key string, payload []byte) {
	if err := c.client.Set(ctx, c.redisKey(resource, key), payload, c.ttl).Err(); err != nil {
		log.Printf("cache: set %s: %v", resource, err)
	}
}

// Invalidate drops every cached page for a resource. Called after any mutation
// of that resource, replacing the browser cache's framework invalidation hooks.
func (c *Cache) Invalidate(ctx context.Context, resource string) error {
	pattern := c.prefix + resource + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}
