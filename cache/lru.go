// Package cache provides bounded bookkeeping maps for per-key state that would otherwise
// grow once per distinct key ever observed
package cache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// RateLimitCache is a fixed-capacity key/value map with least-recently-used eviction
// Not safe for concurrent use; owned by the single control path
type RateLimitCache[K comparable, V any] struct {
	lru     *simplelru.LRU[K, V]
	evicted int
}

// New creates a cache holding at most capacity keys
func New[K comparable, V any](capacity int) (*RateLimitCache[K, V], error) {
	c := &RateLimitCache[K, V]{}
	l, err := simplelru.NewLRU[K, V](capacity, func(K, V) { c.evicted++ })
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// MustNew is New for compile-time constant capacities
func MustNew[K comparable, V any](capacity int) *RateLimitCache[K, V] {
	c, err := New[K, V](capacity)
	if err != nil {
		panic(err)
	}
	return c
}

// Set stores value under key and marks key most recently used
// Setting an existing key refreshes recency without changing size
func (c *RateLimitCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Get returns the value and marks key most recently used
func (c *RateLimitCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Peek returns the value without touching recency
func (c *RateLimitCache[K, V]) Peek(key K) (V, bool) {
	return c.lru.Peek(key)
}

// Delete removes key, reporting whether it was present
func (c *RateLimitCache[K, V]) Delete(key K) bool {
	n := c.evicted
	ok := c.lru.Remove(key)
	c.evicted = n
	return ok
}

// Len returns the number of stored keys
func (c *RateLimitCache[K, V]) Len() int {
	return c.lru.Len()
}

// Keys returns keys from least to most recently used
func (c *RateLimitCache[K, V]) Keys() []K {
	return c.lru.Keys()
}

// Evictions returns how many keys were dropped for capacity
func (c *RateLimitCache[K, V]) Evictions() int {
	return c.evicted
}

// Clear drops every key without counting evictions
func (c *RateLimitCache[K, V]) Clear() {
	n := c.evicted
	c.lru.Purge()
	c.evicted = n
}
