package memory

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

func entry(v int) cache.Entry {
	return cache.Entry{Value: json.RawMessage(fmt.Sprintf("%d", v)), LastModified: int64(v)}
}

func TestRecencyCache_EvictsLeastRecent(t *testing.T) {
	c := NewRecencyCache(2)
	c.Set("A", entry(1))
	c.Set("B", entry(2))
	c.Set("C", entry(3))

	assert.Equal(t, []string{"B", "C"}, c.Keys())
	_, ok := c.Get("A")
	assert.False(t, ok)

	// B is refreshed by the read, so C becomes the eviction candidate.
	_, ok = c.Get("B")
	require.True(t, ok)
	c.Set("D", entry(4))

	assert.ElementsMatch(t, []string{"B", "D"}, c.Keys())
	_, ok = c.Get("C")
	assert.False(t, ok)
}

func TestRecencyCache_ReplaceExistingDoesNotEvict(t *testing.T) {
	c := NewRecencyCache(2)
	c.Set("A", entry(1))
	c.Set("B", entry(2))
	c.Set("A", entry(10))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"B", "A"}, c.Keys())
	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, int64(10), got.LastModified)
}

func TestRecencyCache_GetMissHasNoSideEffect(t *testing.T) {
	c := NewRecencyCache(3)
	c.Set("A", entry(1))
	c.Set("B", entry(2))
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "B"}, c.Keys())
}

func TestRecencyCache_DeleteAndClear(t *testing.T) {
	c := NewRecencyCache(3)
	c.Set("A", entry(1))
	c.Set("B", entry(2))
	c.Set("C", entry(3))

	assert.True(t, c.Delete("B"))
	assert.False(t, c.Delete("B"))
	assert.Equal(t, []string{"A", "C"}, c.Keys())

	assert.True(t, c.Delete("A"))
	assert.True(t, c.Delete("C"))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())

	c.Set("D", entry(4))
	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.Set("E", entry(5))
	assert.Equal(t, []string{"E"}, c.Keys())
}

func TestRecencyCache_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewRecencyCache(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewRecencyCache(-5).Capacity())
}

func TestRecencyCache_SizeNeverExceedsCapacity(t *testing.T) {
	const capacity = 16
	c := NewRecencyCache(capacity)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		key := fmt.Sprintf("k%d", r.Intn(64))
		switch r.Intn(3) {
		case 0:
			c.Get(key)
		case 1:
			c.Delete(key)
		default:
			c.Set(key, entry(i))
		}
		require.LessOrEqual(t, c.Len(), capacity)
		require.Len(t, c.Keys(), c.Len())
	}
}

func TestRecencyCache_ConcurrentAccess(t *testing.T) {
	const capacity = 32
	c := NewRecencyCache(capacity)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%100)
				c.Set(key, entry(i))
				c.Get(key)
				if i%7 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), capacity)
	assert.Len(t, c.Keys(), c.Len())
}
