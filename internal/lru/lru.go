package lru

import (
	"container/list"
	"sync"
)

// EvictCallback is called with every entry that leaves the cache
type EvictCallback[K comparable, V any] func(key K, value V)

// LRU a thread-safe least recently used cache.
//
// Size 0 makes the cache unbounded, entries then live until removed.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	size    int
	order   *list.List // front is the most recently used
	items   map[K]*list.Element
	onEvict EvictCallback[K, V]
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New returns a cache holding at most size entries
func New[K comparable, V any](size int, onEvict EvictCallback[K, V]) *LRU[K, V] {
	if size < 0 {
		size = 0
	}
	return &LRU[K, V]{
		size:    size,
		order:   list.New(),
		items:   make(map[K]*list.Element),
		onEvict: onEvict,
	}
}

// Purge removes every entry
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.order.Len() > 0 {
		c.removeElement(c.order.Back())
	}
}

// Add sets key to value and marks it most recently used, reports whether an
// older entry was evicted to make room
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return false
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	if c.size > 0 && c.order.Len() > c.size {
		c.removeElement(c.order.Back())
		return true
	}
	return false
}

// Get returns the value of key and marks it most recently used
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return value, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Peek returns the value of key without touching its recency
func (c *LRU[K, V]) Peek(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return value, false
	}
	return elem.Value.(*entry[K, V]).value, true
}

// Contains reports whether key is cached, without touching its recency
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Remove drops key, reports whether it was cached
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.removeElement(elem)
	}
	return ok
}

// Keys returns the cached keys from least to most recently used
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}

// Len returns the number of cached entries
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the capacity, 0 when unbounded
func (c *LRU[K, V]) Cap() int {
	return c.size
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	ent := c.order.Remove(elem).(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
