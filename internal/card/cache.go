package card

import (
	"sync"

	"vetcred/internal/member"
)

// DefaultCacheCapacity bounds the credential read cache.
const DefaultCacheCapacity = 500

// Cache is a bounded FIFO cache of member records keyed by credential token.
// Eviction is strictly insertion-ordered: a hit does not refresh an entry's
// position, so every entry is re-read from the store at most one full
// rotation after it was cached.
type Cache struct {
	mu      sync.Mutex
	cap     int
	gen     uint64
	entries map[string]*member.Member
	order   []string
}

func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		cap:     capacity,
		entries: make(map[string]*member.Member, capacity),
		order:   make([]string, 0, capacity),
	}
}

func (c *Cache) Get(token string) (*member.Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	clone := *m
	return &clone, true
}

// Put inserts a record, evicting the oldest entry at capacity. Re-putting an
// existing token replaces the record in place without moving it in the queue.
func (c *Cache) Put(token string, m *member.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(token, m)
}

// Generation returns the invalidation counter. A loader snapshots it before
// reading the store and hands it to PutIfCurrent, so a record read before an
// Evict can never repopulate the cache after it.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// PutIfCurrent behaves like Put unless an Evict landed after gen was
// snapshotted, in which case the record is stale and discarded. Reports
// whether the record was stored.
func (c *Cache) PutIfCurrent(token string, m *member.Member, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.put(token, m)
	return true
}

func (c *Cache) put(token string, m *member.Member) {
	clone := *m
	if _, exists := c.entries[token]; exists {
		c.entries[token] = &clone
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[token] = &clone
	c.order = append(c.order, token)
}

// Evict drops one token and advances the generation. The generation moves
// even when the token is not cached: an in-flight load for it may still be
// holding a pre-eviction record.
func (c *Cache) Evict(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if _, ok := c.entries[token]; !ok {
		return
	}
	delete(c.entries, token)
	for i, t := range c.order {
		if t == token {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
