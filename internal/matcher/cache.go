package matcher

import (
	"container/list"
	"regexp"
	"sync"
)

// Cache keeps compiled expressions so repeated queries skip compilation.
// Least recently used entries are evicted first.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int

	// Configuration
	maxPatternLength int

	stats CacheStats
}

// CacheStats tracks cache performance statistics
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type cacheEntry struct {
	key string
	re  *regexp.Regexp
}

// NewCache creates a cache holding at most maxSize expressions.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &Cache{
		entries:          make(map[string]*list.Element),
		lru:              list.New(),
		maxSize:          maxSize,
		maxPatternLength: 1000,
	}
}

// Compile returns the cached expression for expr, compiling it on a miss.
func (c *Cache) Compile(expr string) (*regexp.Regexp, error) {
	if c == nil || len(expr) > c.maxPatternLength {
		return regexp.Compile(expr)
	}

	c.mu.Lock()
	if e, ok := c.entries[expr]; ok {
		c.lru.MoveToFront(e)
		c.stats.Hits++
		re := e.Value.(*cacheEntry).re
		c.mu.Unlock()
		return re, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[expr]; ok {
		return re, nil
	}
	if c.lru.Len() >= c.maxSize {
		c.evict()
	}
	c.entries[expr] = c.lru.PushFront(&cacheEntry{key: expr, re: re})
	return re, nil
}

// evict removes the least recently used expression
func (c *Cache) evict() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	delete(c.entries, back.Value.(*cacheEntry).key)
	c.lru.Remove(back)
	c.stats.Evictions++
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a copy of the cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.stats = CacheStats{}
}
