package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a bounded TTL+LRU cache. Entries expire ttl after their last
// Set and the oldest entries are evicted once maxSize is exceeded. One
// mutex guards all mutation; operations are O(map size) at worst and
// instances stay small, so contention is not a concern.
//
// When a clone function is supplied, values are copied on the way out so
// callers cannot mutate cached state.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	ttl     time.Duration
	maxSize int
	clone   func(T) T

	now func() time.Time
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

func New[T any](ttl time.Duration, maxSize int, clone func(T) T) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		clone:   clone,
		now:     time.Now,
	}
}

// Get returns the cached value for key. An expired entry is evicted and
// reported as a miss; a hit moves the entry to the most-recently-used
// position.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[T])
	if c.now().After(ent.expiresAt) {
		c.removeLocked(el)
		return zero, false
	}
	c.lru.MoveToBack(el)
	if c.clone != nil {
		return c.clone(ent.value), true
	}
	return ent.value, true
}

// Set stores value under key, refreshing TTL and LRU position, then
// prunes: expired entries first, oldest-first after that until the size
// bound holds.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clone != nil {
		value = c.clone(value)
	}
	expires := c.now().Add(c.ttl)
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry[T])
		ent.value = value
		ent.expiresAt = expires
		c.lru.MoveToBack(el)
	} else {
		el := c.lru.PushBack(&entry[T]{key: key, value: value, expiresAt: expires})
		c.entries[key] = el
	}
	c.pruneLocked()
}

// Age reports how long ago the entry under key was set, for cache
// metadata in responses.
func (c *Cache[T]) Age(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	ent := el.Value.(*entry[T])
	if c.now().After(ent.expiresAt) {
		return 0, false
	}
	return c.ttl - ent.expiresAt.Sub(c.now()), true
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[T]) pruneLocked() {
	now := c.now()
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry[T]).expiresAt) {
			c.removeLocked(el)
		}
		el = next
	}
	for c.maxSize > 0 && c.lru.Len() > c.maxSize {
		c.removeLocked(c.lru.Front())
	}
}

func (c *Cache[T]) removeLocked(el *list.Element) {
	delete(c.entries, el.Value.(*entry[T]).key)
	c.lru.Remove(el)
}
