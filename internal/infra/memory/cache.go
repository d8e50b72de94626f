package memory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"mcq-quiz-service/internal/app"
)

// Cache is an in-process implementation of app.CacheClient, used when no
// Redis address is configured and in tests. Semantics mirror the Redis
// facade: TTL expiry, sorted-set inserts keyed by score, glob pattern
// deletes.
type Cache struct {
	clock func() time.Time

	mu      sync.RWMutex
	values  map[string]entry
	sorted  map[string][]app.ScoredMember
	offline bool
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewCache() *Cache {
	return &Cache{
		clock:  time.Now,
		values: make(map[string]entry),
		sorted: make(map[string][]app.ScoredMember),
	}
}

var _ app.CacheClient = (*Cache)(nil)

// SetOffline forces the degrade path; tests use it to simulate an outage.
func (c *Cache) SetOffline(offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline = offline
}

func (c *Cache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.offline {
		return "", false
	}
	e, ok := c.values[key]
	if !ok || c.expired(e) {
		return "", false
	}
	return e.value, true
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return false
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.clock().Add(ttl)
	}
	c.values[key] = e
	return true
}

func (c *Cache) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return false
	}
	delete(c.values, key)
	delete(c.sorted, key)
	return true
}

func (c *Cache) Exists(_ context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.offline {
		return false
	}
	e, ok := c.values[key]
	if ok && !c.expired(e) {
		return true
	}
	_, ok = c.sorted[key]
	return ok
}

func (c *Cache) Increment(_ context.Context, key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return 0
	}
	n := int64(0)
	if e, ok := c.values[key]; ok && !c.expired(e) {
		n, _ = strconv.ParseInt(e.value, 10, 64)
	}
	n++
	c.values[key] = entry{value: strconv.FormatInt(n, 10)}
	return n
}

func (c *Cache) SortedInsert(_ context.Context, key string, score float64, member string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return false
	}
	members := c.sorted[key]
	for i := range members {
		if members[i].Member == member {
			members[i].Score = score
			c.sorted[key] = members
			return true
		}
	}
	c.sorted[key] = append(members, app.ScoredMember{Member: member, Score: score})
	return true
}

func (c *Cache) SortedRangeDesc(_ context.Context, key string, start, stop int64) []app.ScoredMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.offline {
		return nil
	}
	members := append([]app.ScoredMember(nil), c.sorted[key]...)
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Member < members[j].Member
	})
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	if start > stop {
		return nil
	}
	return members[start : stop+1]
}

func (c *Cache) DeletePattern(_ context.Context, pattern string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return false
	}
	for key := range c.values {
		if matched, _ := path.Match(pattern, key); matched {
			delete(c.values, key)
		}
	}
	for key := range c.sorted {
		if matched, _ := path.Match(pattern, key); matched {
			delete(c.sorted, key)
		}
	}
	return true
}

func (c *Cache) Available(_ context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.offline
}

func (c *Cache) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(c.clock())
}
