// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a thread-safe in-memory TTL cache for computed
// analytics responses. Retention curves and batch health scores are expensive
// fan-outs over the store, and the dashboard polls them; caching keeps the
// store quiet between data refreshes.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/mindcanvas/insights/internal/metrics"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = 5 * time.Minute

type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is a TTL cache keyed by request signature. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// New creates a cache whose entries expire after ttl. A background sweeper
// removes expired entries every five minutes; call Close to stop it.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
			metrics.CacheEntries.Dec()
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return e.data, true
}

// Set stores a value under key with the cache's TTL.
func (c *Cache) Set(key string, data any) {
	c.mu.Lock()
	_, existed := c.entries[key]
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	if !existed {
		metrics.CacheEntries.Inc()
	}
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		metrics.CacheEntries.Dec()
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	metrics.CacheEntries.Sub(float64(n))
}

// Len returns the current entry count, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			removed := 0
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
					removed++
				}
			}
			c.mu.Unlock()
			if removed > 0 {
				metrics.CacheEntries.Sub(float64(removed))
			}
		}
	}
}

// GenerateKey builds a deterministic cache key from an endpoint name and its
// parameters. Parameters are JSON-encoded and hashed so arbitrary values
// (time ranges, ID lists) produce stable fixed-length keys.
func GenerateKey(endpoint string, params any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:unhashable", endpoint)
	}
	return fmt.Sprintf("%s:%x", endpoint, sha256.Sum256(encoded))
}
