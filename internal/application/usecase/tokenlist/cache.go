package tokenlist

import (
	"sync"
	"time"

	"xrplboard/internal/domain"
)

const DefaultCacheDuration = 5 * time.Minute

// Cache holds the last accepted full token list. One Cache is shared by
// every List in the process.
//
// Fetches are fenced by generation on completion: Begin hands out a new
// generation and Commit applies a result only if no newer generation has
// been committed. An older success still lands when every newer fetch
// failed, but it never overwrites a newer accepted list.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	tokens    []domain.Token
	fetchedAt time.Time
	issued    uint64
	committed uint64
	watchers  map[int]func(gen uint64, tokens []domain.Token)
	nextWatch int
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheDuration
	}
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		watchers: make(map[int]func(uint64, []domain.Token)),
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Fresh returns the cached list and its generation if it is younger than the TTL.
func (c *Cache) Fresh() ([]domain.Token, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil || c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, 0, false
	}
	return c.tokens, c.committed, true
}

// Latest returns the cached list and its generation regardless of age.
func (c *Cache) Latest() ([]domain.Token, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens, c.committed
}

// Begin issues the generation for a fetch that is about to start.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// Commit stores tokens fetched under gen and hands them to every watcher.
// It returns false, leaving the cache untouched, when a newer fetch has
// already been committed. The stored slice must not be modified afterwards.
func (c *Cache) Commit(gen uint64, tokens []domain.Token) bool {
	c.mu.Lock()
	if gen <= c.committed {
		c.mu.Unlock()
		return false
	}
	c.tokens = tokens
	c.fetchedAt = c.now()
	c.committed = gen
	watchers := make([]func(uint64, []domain.Token), 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	for _, w := range watchers {
		w(gen, tokens)
	}
	return true
}

// Watch registers fn to be called after every successful Commit. Watchers
// may observe commits out of order and must compare generations.
func (c *Cache) Watch(fn func(gen uint64, tokens []domain.Token)) (cancel func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Invalidate marks the cached list stale without dropping it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
