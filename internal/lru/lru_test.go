package lru_test

import (
	"testing"

	"github.com/armapper/arm/internal/lru"
	"github.com/stretchr/testify/assert"
)

func TestLRU_OrderAndEviction(t *testing.T) {
	var evicted []string
	lc := lru.New[string, string](3, func(key string, _ string) {
		evicted = append(evicted, key)
	})
	lc.Add("k1", "v1")
	lc.Add("k2", "v2")
	lc.Add("k3", "v3")

	assert.Equal(t, []string{"k1", "k2", "k3"}, lc.Keys())

	// k1 becomes the most recently used, so k2 is evicted next
	_, ok := lc.Get("k1")
	assert.True(t, ok)

	assert.True(t, lc.Add("k4", "v4"))
	assert.Equal(t, []string{"k2"}, evicted)
	assert.Equal(t, []string{"k3", "k1", "k4"}, lc.Keys())
	assert.False(t, lc.Contains("k2"))
	assert.Equal(t, 3, lc.Len())
}

func TestLRU_UpdateDoesNotEvict(t *testing.T) {
	lc := lru.New[int, string](2, nil)
	lc.Add(1, "a")
	lc.Add(2, "b")
	assert.False(t, lc.Add(1, "c"))

	value, ok := lc.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, "c", value)
	assert.Equal(t, []int{2, 1}, lc.Keys())
}

func TestLRU_Unbounded(t *testing.T) {
	lc := lru.New[int, int](0, nil)
	for i := 0; i < 1000; i++ {
		assert.False(t, lc.Add(i, i))
	}
	assert.Equal(t, 1000, lc.Len())
	assert.Equal(t, 0, lc.Cap())
}

func TestLRU_RemoveAndPurge(t *testing.T) {
	var evicted int
	lc := lru.New[int, int](0, func(int, int) { evicted++ })
	lc.Add(1, 1)
	lc.Add(2, 2)

	assert.True(t, lc.Remove(1))
	assert.False(t, lc.Remove(1))
	assert.Equal(t, 1, evicted)

	lc.Purge()
	assert.Equal(t, 0, lc.Len())
	assert.Equal(t, 2, evicted)
	assert.Empty(t, lc.Keys())
}
