package redis

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"mcq-quiz-service/internal/app"
)

// Cache is the degrade-to-default facade over Redis. Every operation logs
// and returns a type-appropriate neutral value on backend failure; nothing
// here ever raises to the caller. This is the sole integration point with
// the external store.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

var _ app.CacheClient = (*Cache)(nil)

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache GET %q: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("cache SET %q: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("cache DEL %q: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("cache EXISTS %q: %v", key, err)
		return false
	}
	return n == 1
}

func (c *Cache) Increment(ctx context.Context, key string) int64 {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("cache INCR %q: %v", key, err)
		return 0
	}
	return n
}

func (c *Cache) SortedInsert(ctx context.Context, key string, score float64, member string) bool {
	if err := c.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		log.Printf("cache ZADD %q: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) SortedRangeDesc(ctx context.Context, key string, start, stop int64) []app.ScoredMember {
	zs, err := c.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		log.Printf("cache ZREVRANGE %q: %v", key, err)
		return nil
	}
	members := make([]app.ScoredMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		members = append(members, app.ScoredMember{Member: member, Score: z.Score})
	}
	return members
}

// DeletePattern removes every key matching pattern using SCAN, so a large
// keyspace never blocks the server the way KEYS would.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) bool {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache SCAN %q: %v", pattern, err)
		return false
	}
	if len(keys) == 0 {
		return true
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache DEL pattern %q: %v", pattern, err)
		return false
	}
	return true
}

// Available is an idempotent connectivity probe.
func (c *Cache) Available(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}
