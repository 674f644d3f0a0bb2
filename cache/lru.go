/*
Copyright 2025 The memofetch authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"sync"
)

// node is a node in a doubly linked list
// that is used to implement an LRU cache
type node[T any] struct {
	value T
	key   string
	prev  *node[T]
	next  *node[T]
}

func (n *node[T]) addNext(node *node[T]) {
	n.next = node
}

func (n *node[T]) addPrev(node *node[T]) {
	n.prev = node
}

// LRU is a thread-safe in-memory key/value store with a capacity bound.
// All methods are safe for concurrent use.
// All operations are O(1). The hash map lookup is O(1) and so is the doubly
// linked list insertion/deletion.
//
// The LRU is implemented as a doubly linked list, where the most recently
// accessed item is at the back of the list and the least recently accessed
// item is at the front. When an item is accessed, read or written, it is
// moved to the back of the list. When the cache is over capacity, the least
// recently accessed item is removed from the front of the list.
//
//	                                  Cache
//	           ┌───────────────────────────────────────────────────┐
//	           │                                                   │
//	  empty    │     LRU                                     MRU   │    empty
//	┌───────┐  │  ┌───────┐   ┌───────┐     ┌───────┐   ┌───────┐  │  ┌───────┐
//	│       │  │  │       │   │       │ ... │       │   │       │  │  │       │
//	│ HEAD  │◄─┼─►│       │◄─►│       │◄───►│       │◄─►│       │◄─┼─►│ TAIL  │
//	│       │  │  │       │   │       │     │       │   │       │  │  │       │
//	└───────┘  │  └───────┘   └───────┘     └───────┘   └───────┘  │  └───────┘
//	           │                                                   │
//	           │                                                   │
//	           └───────────────────────────────────────────────────┘
//
// A capacity of Unbounded disables eviction entirely.
// Use the NewLRU function to create a new cache that is ready to use.
type LRU[T any] struct {
	cache    map[string]*node[T]
	capacity int
	metrics  *cacheMetrics
	head     *node[T]
	tail     *node[T]
	mu       sync.RWMutex
}

var _ Store[any] = &LRU[any]{}

// NewLRU creates a new LRU cache with the given capacity.
func NewLRU[T any](capacity int, opts ...Options) (*LRU[T], error) {
	if capacity < 0 {
		return nil, ErrInvalidSize
	}
	opt, err := makeOptions(opts...)
	if err != nil {
		return nil, err
	}

	head := &node[T]{}
	tail := &node[T]{}
	head.addNext(tail)
	tail.addPrev(head)

	lru := &LRU[T]{
		cache:    make(map[string]*node[T]),
		capacity: capacity,
		head:     head,
		tail:     tail,
	}

	if opt.registerer != nil {
		lru.metrics = newCacheMetrics(opt.metricsPrefix, opt.registerer)
	}

	return lru, nil
}

// Set adds an item to the cache for the given key, an existing item for
// the key is overwritten and becomes the most recently used. If the
// insertion takes the cache over capacity, the least recently used item
// is evicted.
func (c *LRU[T]) Set(key string, value T) error {
	c.mu.Lock()
	if oldNode, ok := c.cache[key]; ok {
		c.delete(oldNode)
		_ = c.add(&node[T]{key: key, value: value})
		c.mu.Unlock()
		recordRequest(c.metrics, StatusSuccess)
		return nil
	}

	evicted := c.add(&node[T]{key: key, value: value})
	c.mu.Unlock()
	recordRequest(c.metrics, StatusSuccess)
	if evicted {
		recordEviction(c.metrics)
		return nil
	}
	recordItemIncrement(c.metrics)
	return nil
}

func (c *LRU[T]) add(node *node[T]) (evicted bool) {
	prev := c.tail.prev
	prev.addNext(node)
	c.tail.addPrev(node)
	node.addPrev(prev)
	node.addNext(c.tail)

	c.cache[node.key] = node

	if c.capacity > 0 && len(c.cache) > c.capacity {
		c.delete(c.head.next)
		return true
	}
	return false
}

// Delete removes the item stored for the given key. Does nothing if the
// key is not in the cache.
func (c *LRU[T]) Delete(key string) error {
	c.mu.Lock()
	node, ok := c.cache[key]
	if !ok {
		c.mu.Unlock()
		recordRequest(c.metrics, StatusSuccess)
		return nil
	}

	c.delete(node)
	c.mu.Unlock()
	recordRequest(c.metrics, StatusSuccess)
	recordDecrement(c.metrics)
	return nil
}

func (c *LRU[T]) delete(node *node[T]) {
	node.prev.next, node.next.prev = node.next, node.prev
	node.next, node.prev = nil, nil // avoid memory leaks
	delete(c.cache, node.key)
}

// Get returns the item stored for the given key, and a bool indicating
// whether the key was found. A hit makes the item the most recently used.
func (c *LRU[T]) Get(key string) (T, bool, error) {
	var res T
	c.mu.Lock()
	node, ok := c.cache[key]
	if !ok {
		c.mu.Unlock()
		recordRequest(c.metrics, StatusSuccess)
		recordEvent(c.metrics, CacheEventTypeMiss)
		return res, false, nil
	}
	c.delete(node)
	_ = c.add(node)
	c.mu.Unlock()
	recordRequest(c.metrics, StatusSuccess)
	recordEvent(c.metrics, CacheEventTypeHit)
	return node.value, true, nil
}

// ListKeys returns a list of keys in the cache.
func (c *LRU[T]) ListKeys() ([]string, error) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.cache))
	for k := range c.cache {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	recordRequest(c.metrics, StatusSuccess)
	return keys, nil
}

// Resize resizes the cache and returns the number of items removed.
func (c *LRU[T]) Resize(size int) (int, error) {
	if size <= 0 {
		recordRequest(c.metrics, StatusFailure)
		return 0, ErrInvalidSize
	}

	c.mu.Lock()
	overflow := len(c.cache) - size
	// set the new capacity
	c.capacity = size
	if overflow <= 0 {
		c.mu.Unlock()
		recordRequest(c.metrics, StatusSuccess)
		return 0, nil
	}

	for i := 0; i < overflow; i++ {
		c.delete(c.head.next)
		recordEviction(c.metrics)
		recordDecrement(c.metrics)
	}
	c.mu.Unlock()
	recordRequest(c.metrics, StatusSuccess)
	return overflow, nil
}
