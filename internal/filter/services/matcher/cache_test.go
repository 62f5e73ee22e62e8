package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

func TestDecisionCache_PutGet(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	d := domain.Decision{Blocked: true, MatchedRule: "example.com"}
	c.Put("ads.example.com", d)

	got, ok := c.Get("ads.example.com")
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = c.Get("unknown.example.com")
	assert.False(t, ok)

	hits, misses, _ := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestDecisionCache_EvictsAtCapacity(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("host%d.example.com", i), domain.Decision{})
	}

	assert.Equal(t, 2, c.Len())
	_, _, evictions := c.Stats()
	assert.Equal(t, uint64(1), evictions)
}

func TestDecisionCache_RemoveDropsEntry(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	c.Put("ads.example.com", domain.Decision{Blocked: true})
	c.Remove("ads.example.com")

	_, ok := c.Get("ads.example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	// removing an absent key is a no-op
	c.Remove("unknown.example.com")
}

func TestDecisionCache_PurgeCountsEvictions(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)

	c.Put("a.example.com", domain.Decision{})
	c.Put("b.example.com", domain.Decision{})
	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, _, evictions := c.Stats()
	assert.Equal(t, uint64(2), evictions)
}

func TestDisabledCache(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)

	c.Put("a.example.com", domain.Decision{Blocked: true})
	_, ok := c.Get("a.example.com")
	assert.False(t, ok, "disabled cache must always miss")
	assert.Equal(t, 0, c.Len())
	c.Purge()
}
