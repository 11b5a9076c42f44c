// Package memory implements the in-process recency tier.
package memory

import (
	"sync"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1000

type node struct {
	key   string
	entry cache.Entry
	prev  *node
	next  *node
}

// RecencyCache is a bounded map with least-recently-used eviction.
// The list runs from least-recent (head) to most-recent (tail).
type RecencyCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*node
	head     *node
	tail     *node
}

// NewRecencyCache creates a cache holding at most capacity entries.
func NewRecencyCache(capacity int) *RecencyCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RecencyCache{capacity: capacity, items: make(map[string]*node, capacity)}
}

// Get implements ports.LocalCache.Get. A hit moves key to the most-recent position.
func (c *RecencyCache) Get(key string) (cache.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[key]
	if !ok {
		return cache.Entry{}, false
	}
	c.moveToBack(n)
	return n.entry, true
}

// Set implements ports.LocalCache.Set.
func (c *RecencyCache) Set(key string, entry cache.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.items[key]; ok {
		c.unlink(n)
		delete(c.items, key)
	} else if len(c.items) >= c.capacity {
		c.evictOldest()
	}
	n := &node{key: key, entry: entry}
	c.pushBack(n)
	c.items[key] = n
}

// Delete implements ports.LocalCache.Delete.
func (c *RecencyCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.items, key)
	return true
}

// Clear drops every entry.
func (c *RecencyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*node, c.capacity)
	c.head, c.tail = nil, nil
}

// Len returns the number of entries.
func (c *RecencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the fixed maximum number of entries.
func (c *RecencyCache) Capacity() int { return c.capacity }

// Keys returns keys from least- to most-recently used.
func (c *RecencyCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for n := c.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

func (c *RecencyCache) evictOldest() {
	if c.head == nil {
		return
	}
	oldest := c.head
	c.unlink(oldest)
	delete(c.items, oldest.key)
}

func (c *RecencyCache) pushBack(n *node) {
	n.prev = c.tail
	n.next = nil
	if c.tail != nil {
		c.tail.next = n
	} else {
		c.head = n
	}
	c.tail = n
}

func (c *RecencyCache) unlink(n *node) {
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
	n.prev, n.next = nil, nil
}

func (c *RecencyCache) moveToBack(n *node) {
	if c.tail == n {
		return
	}
	c.unlink(n)
	c.pushBack(n)
}

var _ ports.LocalCache = (*RecencyCache)(nil)
