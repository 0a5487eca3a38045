package card

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcred/internal/member"
)

func entry(no string) *member.Member {
	return &member.Member{MemberNo: no}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewCache(DefaultCacheCapacity)

	for i := 0; i < DefaultCacheCapacity; i++ {
		c.Put(fmt.Sprintf("token-%d", i), entry(fmt.Sprintf("VET-2026-%05d", i)))
	}
	require.Equal(t, DefaultCacheCapacity, c.Len())

	// One over capacity pushes out exactly the first insert.
	c.Put("token-overflow", entry("VET-2026-99999"))

	assert.Equal(t, DefaultCacheCapacity, c.Len())
	_, ok := c.Get("token-0")
	assert.False(t, ok)
	_, ok = c.Get("token-1")
	assert.True(t, ok)
	_, ok = c.Get("token-overflow")
	assert.True(t, ok)
}

func TestCacheHitDoesNotRefreshPosition(t *testing.T) {
	c := NewCache(2)
	c.Put("a", entry("A"))
	c.Put("b", entry("B"))

	// Reading "a" must not save it from being the next eviction.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", entry("C"))

	_, ok = c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCacheReplaceKeepsPosition(t *testing.T) {
	c := NewCache(2)
	c.Put("a", entry("A"))
	c.Put("b", entry("B"))
	c.Put("a", entry("A2"))

	c.Put("c", entry("C"))

	_, ok := c.Get("a")
	assert.False(t, ok, "replaced entry keeps its original queue slot")
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "B", got.MemberNo)
}

func TestCacheEvict(t *testing.T) {
	c := NewCache(2)
	c.Put("a", entry("A"))
	c.Evict("a")
	c.Evict("missing")

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	// Eviction must free the queue slot too.
	c.Put("b", entry("B"))
	c.Put("c", entry("C"))
	assert.Equal(t, 2, c.Len())
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewCache(2)
	c.Put("a", entry("A"))

	got, ok := c.Get("a")
	require.True(t, ok)
	got.MemberNo = "mutated"

	again, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", again.MemberNo)
}

func TestCachePutIfCurrentDiscardsAfterEvict(t *testing.T) {
	c := NewCache(2)

	gen := c.Generation()
	// Eviction of a not-yet-cached token still invalidates in-flight loads.
	c.Evict("token-a")

	stored := c.PutIfCurrent("token-a", entry("VET-2026-00001"), gen)
	assert.False(t, stored)
	_, ok := c.Get("token-a")
	assert.False(t, ok)

	// A load begun after the eviction lands normally.
	gen = c.Generation()
	require.True(t, c.PutIfCurrent("token-a", entry("VET-2026-00001"), gen))
	_, ok = c.Get("token-a")
	assert.True(t, ok)
}
