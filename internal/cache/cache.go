// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

// Package cache provides a typed in-memory TTL cache for DHIS2 fetch results.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = 5 * time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a concurrency-safe TTL cache. Expired entries are dropped lazily
// on Get and periodically by a background sweeper stopped with Close.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return newCache[V](ttl, time.Now, DefaultCleanupInterval)
}

func newCache[V any](ttl time.Duration, now func() time.Time, cleanupInterval time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     now,
		stats:   Stats{LastCleanup: now()},
		stop:    make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	return c
}

// TTL returns the default time-to-live of entries.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.record(func(s *Stats) { s.Misses++ })
		var zero V
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		total := int64(len(c.entries))
		c.mu.Unlock()

		c.record(func(s *Stats) {
			s.Misses++
			s.Evictions++
			s.TotalKeys = total
		})
		var zero V
		return zero, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) { s.TotalKeys = total })
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) {
		if existed {
			s.Evictions++
		}
		s.TotalKeys = total
	})
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = 0
	})
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache[V]) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Close stops the background sweeper. The cache stays usable.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) cleanup() {
	now := c.now()

	c.mu.Lock()
	evicted := int64(0)
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = total
		s.LastCleanup = now
	})
}

func (c *Cache[V]) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

// GenerateKey builds a stable cache key from a resource name and its parameters.
func GenerateKey(resource string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", resource, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", resource, hash[:16])
}
