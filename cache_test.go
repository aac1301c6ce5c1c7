// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCacheDisabledByDefault(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	a, b := enc(t, ctx, 1), enc(t, ctx, 2)

	for i := 0; i < 2; i++ {
		_, err := c.LessThan(a, b)
		require.NoError(t, err)
	}
	s := c.CacheStatistics()
	require.False(t, s.Enabled)
	require.Zero(t, s.Size)
	require.EqualValues(t, 2, c.Statistics().Comparisons)
}

func TestCacheHit(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	c.ConfigureCache(true, 16, time.Minute)

	a, b := enc(t, ctx, 11), enc(t, ctx, 4)
	first, err := c.GreaterThan(a, b)
	require.NoError(t, err)
	second, err := c.GreaterThan(a, b)
	require.NoError(t, err)

	require.Equal(t, decBool(t, first), decBool(t, second))
	require.NotSame(t, first.Int(), second.Int(), "hits return copies")

	want := CacheStatistics{Enabled: true, Size: 1, Capacity: 16, TTL: time.Minute, Hits: 1, Misses: 1, HitRate: 0.5}
	if diff := cmp.Diff(want, c.CacheStatistics()); diff != "" {
		t.Errorf("cache statistics (-want +got):\n%s", diff)
	}
	s := c.Statistics()
	require.EqualValues(t, 1, s.CacheHits)
	require.EqualValues(t, 1, s.CacheMisses)
	require.EqualValues(t, 1, s.Comparisons, "a hit is not recomputed")

	// A different operation on the same operands is a different key.
	_, err = c.LessThan(a, b)
	require.NoError(t, err)
	require.Equal(t, 2, c.CacheStatistics().Size)
}

func TestCacheEviction(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	c.ConfigureCache(true, 2, time.Minute)

	a, b := enc(t, ctx, 1), enc(t, ctx, 2)
	_, err := c.Equal(a, b)
	require.NoError(t, err)
	_, err = c.Equal(a, b) // hit: access count 1
	require.NoError(t, err)
	_, err = c.LessThan(a, b)
	require.NoError(t, err)
	_, err = c.GreaterThan(a, b) // evicts less_than, the least accessed
	require.NoError(t, err)

	s := c.CacheStatistics()
	require.Equal(t, 2, s.Size)
	require.EqualValues(t, 1, s.Evictions)

	_, err = c.Equal(a, b)
	require.NoError(t, err)
	require.EqualValues(t, 2, c.CacheStatistics().Hits, "the frequently used entry survives")
}

func TestCacheExpiry(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	c.ConfigureCache(true, 8, time.Second)

	now := time.Now()
	c.state.cache.mu.Lock()
	c.state.cache.now = func() time.Time { return now }
	c.state.cache.mu.Unlock()

	a, b := enc(t, ctx, 5), enc(t, ctx, 5)
	_, err := c.Equal(a, b)
	require.NoError(t, err)

	c.state.cache.mu.Lock()
	c.state.cache.now = func() time.Time { return now.Add(2 * time.Second) }
	c.state.cache.mu.Unlock()

	r, err := c.Equal(a, b)
	require.NoError(t, err)
	require.True(t, decBool(t, r))

	s := c.CacheStatistics()
	require.EqualValues(t, 1, s.Expirations)
	require.EqualValues(t, 2, s.Misses)
	require.Zero(t, s.Hits)
}

func TestCacheClearAndDisable(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	c.ConfigureCache(true, 8, 0)

	a, b := enc(t, ctx, 5), enc(t, ctx, 6)
	_, err := c.NotEqual(a, b)
	require.NoError(t, err)
	require.Equal(t, 1, c.CacheStatistics().Size)

	c.ClearCache()
	require.Equal(t, CacheStatistics{Enabled: true, Capacity: 8}, c.CacheStatistics())

	_, err = c.NotEqual(a, b)
	require.NoError(t, err)
	c.ConfigureCache(false, 8, 0)
	require.Zero(t, c.CacheStatistics().Size)
}

func TestCacheConstantComparisons(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	c.ConfigureCache(true, 16, time.Minute)
	a := enc(t, ctx, 7)

	for i := 0; i < 3; i++ {
		pos, err := c.IsPositive(a)
		require.NoError(t, err)
		require.True(t, decBool(t, pos))

		gt, err := c.CompareConstant(a, 3, CompareGT)
		require.NoError(t, err)
		require.True(t, decBool(t, gt))

		zero, err := c.IsZero(a)
		require.NoError(t, err)
		require.False(t, decBool(t, zero))
	}

	// IsPositive and CompareConstant(a, 0, gt) are the same query.
	_, err := c.CompareConstant(a, 0, CompareGT)
	require.NoError(t, err)
	abs, err := c.Abs(a)
	require.NoError(t, err)
	require.Equal(t, int64(7), dec(t, abs))

	s := c.CacheStatistics()
	require.Equal(t, 3, s.Size)
	require.EqualValues(t, 8, s.Hits)
	require.EqualValues(t, 3, s.Misses)
	require.EqualValues(t, 3, c.Statistics().Comparisons)
}

func TestCacheKey(t *testing.T) {
	ctx := testContext(t)
	a, b := enc(t, ctx, 1), enc(t, ctx, 1)

	k1, err := cacheKey("equal", a, b)
	require.NoError(t, err)
	k2, err := cacheKey("equal", a.Clone(), b.Clone())
	require.NoError(t, err)
	require.Equal(t, k1, k2, "keys depend on ciphertext content only")

	k3, err := cacheKey("equal", b, a)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3, "fresh encryptions of equal plaintexts differ")

	c0, err := constantCacheKey("equal", a, 0)
	require.NoError(t, err)
	c1, err := constantCacheKey("equal", a, 1)
	require.NoError(t, err)
	again, err := constantCacheKey("equal", a.Clone(), 0)
	require.NoError(t, err)
	require.Equal(t, c0, again)
	require.NotEqual(t, c0, c1)
	require.NotEqual(t, k1, c1)
}
