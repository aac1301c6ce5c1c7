// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// CacheConfig configures the comparison result cache.
type CacheConfig struct {
	Enabled bool
	MaxSize int
	TTL     time.Duration
}

// DefaultCacheConfig returns a disabled cache of 1024 entries with a five
// minute TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: false, MaxSize: 1024, TTL: 5 * time.Minute}
}

// CacheStatistics describes the cache state and its counters since the last
// ClearCache.
type CacheStatistics struct {
	Enabled     bool
	Size        int
	Capacity    int
	TTL         time.Duration
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	HitRate     float64
}

type cacheEntry struct {
	result      *EncryptedBool
	createdAt   time.Time
	lastAccess  time.Time
	accessCount uint64
}

// comparisonCache maps operation|operand-fingerprint keys to flags.
type comparisonCache struct {
	mu      sync.Mutex
	cfg     CacheConfig
	entries map[string]*cacheEntry

	hits, misses, evictions, expirations uint64

	now func() time.Time
}

func newComparisonCache(cfg CacheConfig) *comparisonCache {
	return &comparisonCache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

func (c *comparisonCache) enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Enabled && c.cfg.MaxSize > 0
}

func (c *comparisonCache) config() CacheConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// get returns a copy of a live entry. Expired entries are dropped and count
// as misses.
func (c *comparisonCache) get(key string) (*EncryptedBool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	now := c.now()
	if c.expired(e, now) {
		delete(c.entries, key)
		c.expirations++
		c.misses++
		return nil, false
	}
	e.accessCount++
	e.lastAccess = now
	c.hits++
	return e.result.Clone(), true
}

// put stores a copy of result. When the cache is full, expired entries go
// first, then the entry with the fewest accesses.
func (c *comparisonCache) put(key string, result *EncryptedBool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled || c.cfg.MaxSize <= 0 {
		return
	}
	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.cfg.MaxSize {
		c.sweepLocked(now)
		for len(c.entries) >= c.cfg.MaxSize {
			c.evictLeastUsedLocked()
		}
	}
	c.entries[key] = &cacheEntry{
		result:     result.Clone(),
		createdAt:  now,
		lastAccess: now,
	}
}

func (c *comparisonCache) expired(e *cacheEntry, now time.Time) bool {
	return c.cfg.TTL > 0 && now.Sub(e.createdAt) > c.cfg.TTL
}

func (c *comparisonCache) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			c.expirations++
		}
	}
}

// evictLeastUsedLocked removes the entry with the lowest access count; ties
// go to the least recently used one.
func (c *comparisonCache) evictLeastUsedLocked() {
	var victim string
	var least *cacheEntry
	for k, e := range c.entries {
		if least == nil || e.accessCount < least.accessCount ||
			(e.accessCount == least.accessCount && e.lastAccess.Before(least.lastAccess)) {
			victim, least = k, e
		}
	}
	if least != nil {
		delete(c.entries, victim)
		c.evictions++
	}
}

func (c *comparisonCache) configure(cfg CacheConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	if !cfg.Enabled {
		c.entries = make(map[string]*cacheEntry)
		return
	}
	c.sweepLocked(c.now())
	for len(c.entries) > cfg.MaxSize {
		c.evictLeastUsedLocked()
	}
}

func (c *comparisonCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
}

func (c *comparisonCache) statistics() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CacheStatistics{
		Enabled:     c.cfg.Enabled,
		Size:        len(c.entries),
		Capacity:    c.cfg.MaxSize,
		TTL:         c.cfg.TTL,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// cacheKey is op followed by the blake3 fingerprint of every operand's
// ciphertext.
func cacheKey(op string, operands ...*EncryptedInt) (string, error) {
	var sb strings.Builder
	sb.WriteString(op)
	for i, v := range operands {
		ct, _, _ := v.snapshot()
		data, err := ct.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("fingerprint operand %d: %w", i, err)
		}
		sum := blake3.Sum256(data)
		sb.WriteByte('|')
		sb.WriteString(hex.EncodeToString(sum[:]))
	}
	return sb.String(), nil
}

// constantCacheKey keys a comparison against the plaintext constant k. The
// constant is written in decimal, so it never collides with a fingerprint.
func constantCacheKey(op string, a *EncryptedInt, k int64) (string, error) {
	key, err := cacheKey(op, a)
	if err != nil {
		return "", err
	}
	return key + "|k=" + strconv.FormatInt(k, 10), nil
}

// ConfigureCache enables or disables the cache and sets its capacity and TTL.
// Disabling drops every entry.
func (c *ComparisonEngine) ConfigureCache(enabled bool, maxSize int, ttl time.Duration) {
	c.state.cache.configure(CacheConfig{Enabled: enabled, MaxSize: maxSize, TTL: ttl})
}

// ClearCache drops every entry and zeroes the cache counters.
func (c *ComparisonEngine) ClearCache() {
	c.state.cache.clear()
}

// CacheStatistics returns the cache state.
func (c *ComparisonEngine) CacheStatistics() CacheStatistics {
	return c.state.cache.statistics()
}
