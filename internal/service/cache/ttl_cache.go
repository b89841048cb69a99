package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// TTLCache is an in-process cache bounded by max entries. Expired entries are
// evicted on access; when full, expired entries are swept before the oldest is dropped.
type TTLCache struct {
	mu    sync.RWMutex
	m     map[string]entry
	order []string
	max   int
	now   func() time.Time
}

func NewTTLCache(maxEntries int) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &TTLCache{m: make(map[string]entry), max: maxEntries, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now := c.now(); !e.exp.IsZero() && now.After(e.exp) {
		c.mu.Lock()
		// a concurrent SetBytes may have replaced the entry
		if cur, ok := c.m[key]; ok && !cur.exp.IsZero() && now.After(cur.exp) {
			delete(c.m, key)
			c.dropOrderLocked(key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists {
		if len(c.m) >= c.max {
			c.evictLocked()
		}
		c.order = append(c.order, key)
	}
	c.m[key] = entry{v: value, exp: exp}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *TTLCache) evictLocked() {
	now := c.now()
	kept := c.order[:0]
	for _, k := range c.order {
		e, ok := c.m[k]
		if !ok {
			continue
		}
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	for len(c.m) >= c.max && len(c.order) > 0 {
		delete(c.m, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *TTLCache) dropOrderLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
