// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemory(0)

	c.Set("key1", "value1", 5*time.Minute)

	val, ok := c.Get("key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, "value1", val)

	_, ok = c.Get("nonexistent")
	assert.False(t, ok, "expected not to find nonexistent key")
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemory(0)

	c.Set("shortlived", "value", 50*time.Millisecond)

	val, ok := c.Get("shortlived")
	require.True(t, ok)
	assert.Equal(t, "value", val)

	time.Sleep(100 * time.Millisecond)

	_, ok = c.Get("shortlived")
	assert.False(t, ok, "expected key to be expired")
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemory(0)
	c.Set("key1", "value1", 5*time.Minute)

	_, ok := c.Get("key1")
	require.True(t, ok)

	c.Delete("key1")

	_, ok = c.Get("key1")
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemory(0)
	c.Set("key1", "value1", 5*time.Minute)
	c.Set("key2", "value2", 5*time.Minute)
	c.Set("key3", "value3", 5*time.Minute)

	stats := c.Stats()
	assert.Equal(t, 3, stats.CurrentSize)

	c.Clear()
	stats = c.Stats()
	assert.Equal(t, 0, stats.CurrentSize)
}

func TestMemoryCache_StatsTracksHitsAndMisses(t *testing.T) {
	c := NewMemory(0)
	c.Set("k", "v", time.Minute)

	_, _ = c.Get("k")
	_, _ = c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestNoOpCache_NeverStores(t *testing.T) {
	c := NewNoOp()
	c.Set("key", "value", time.Minute)

	_, ok := c.Get("key")
	assert.False(t, ok)
}
