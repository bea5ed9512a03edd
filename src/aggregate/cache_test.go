package aggregate

import (
	"fmt"
	"testing"
	"time"

	"volume-tracker/src/models"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestRunCacheEviction(t *testing.T) {
	cache := NewRunCache(3)
	base := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		cache.Put(models.MMinute{Symbol: fmt.Sprintf("S%d", i), Time: base})
	}

	assert.Equal(t, 3, cache.Len())

	_, ok := cache.Get("S0", base)
	assert.False(t, ok, "oldest entry is evicted at capacity")

	for i := 1; i < 4; i++ {
		_, ok := cache.Get(fmt.Sprintf("S%d", i), base)
		assert.True(t, ok)
	}
}

// -----------------------------------------------------------------------------

func TestRunCacheUpdateInPlace(t *testing.T) {
	cache := NewRunCache(2)
	base := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	cache.Put(models.MMinute{Symbol: "AAA", Time: base, Volume: 1})
	cache.Put(models.MMinute{Symbol: "AAA", Time: base, Volume: 2})

	assert.Equal(t, 1, cache.Len(), "same key does not grow the cache")

	m, ok := cache.Get("AAA", base)
	assert.True(t, ok)
	assert.Equal(t, 2.0, m.Volume)
}

// -----------------------------------------------------------------------------

func TestRunCacheKeyedBySymbolAndMinute(t *testing.T) {
	cache := NewRunCache(10)
	base := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	cache.Put(models.MMinute{Symbol: "AAA", Time: base})
	cache.Put(models.MMinute{Symbol: "AAA", Time: base.Add(time.Minute)})

	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Get("AAA", base.Add(2*time.Minute))
	assert.False(t, ok)
}
