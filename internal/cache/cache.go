// Package cache provides a bounded LRU cache used for prepared statements.
package cache

import "sync"

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRU is a fixed-capacity least-recently-used cache. onEvict is called for
// every entry leaving the cache, whether evicted, replaced or purged, so the
// owner can release resources held by the value.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]*node[K, V]
	maxSize int
	head    *node[K, V]
	tail    *node[K, V]
	stats   Stats
	onEvict func(K, V)
}

type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// New creates a cache holding at most maxSize entries. A maxSize below one
// disables caching: Add evicts immediately.
func New[K comparable, V any](maxSize int, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		data:    make(map[K]*node[K, V]),
		maxSize: maxSize,
		stats:   Stats{MaxSize: maxSize},
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it most recently used
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	c.stats.Hits++
	return n.value, true
}

// Add stores a value, evicting the least recently used entry when full
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	var evicted []*node[K, V]

	if n, ok := c.data[key]; ok {
		old := &node[K, V]{key: key, value: n.value}
		n.value = value
		c.moveToFront(n)
		c.mu.Unlock()
		c.evict(old)
		return
	}

	n := &node[K, V]{key: key, value: value}
	c.addToFront(n)
	c.data[key] = n
	for len(c.data) > c.maxSize && c.tail != nil {
		tail := c.tail
		c.removeNode(tail)
		c.stats.Evictions++
		evicted = append(evicted, tail)
	}
	c.mu.Unlock()

	c.evict(evicted...)
}

// Remove drops a single entry
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	n, ok := c.data[key]
	if ok {
		c.removeNode(n)
	}
	c.mu.Unlock()

	if ok {
		c.evict(n)
	}
}

// Purge drops every entry
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	var all []*node[K, V]
	for n := c.head; n != nil; n = n.next {
		all = append(all, n)
	}
	c.data = make(map[K]*node[K, V])
	c.head = nil
	c.tail = nil
	c.mu.Unlock()

	c.evict(all...)
}

// Len returns the number of cached entries
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// GetStats returns cache statistics
func (c *LRU[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// evict runs the callback outside the lock
func (c *LRU[K, V]) evict(nodes ...*node[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range nodes {
		c.onEvict(n.key, n.value)
	}
}

func (c *LRU[K, V]) addToFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.addToFront(n)
}

func (c *LRU[K, V]) removeNode(n *node[K, V]) {
	c.unlink(n)
	delete(c.data, n.key)
}

func (c *LRU[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
