package evaluator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

func TestStateCacheEviction(t *testing.T) {
	cache := NewStateCache(3, 3_600_000)
	now := int64(1_700_000_000_000)

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("sensor_%d", i), AlertState{
			Level:     models.AlertLevelWarning,
			Timestamp: now + int64(i)*1000,
		})
	}
	assert.Equal(t, 3, cache.Len())

	// 超出容量：最旧时间戳的条目被淘汰
	cache.Set("sensor_3", AlertState{Level: models.AlertLevelAlert, Timestamp: now + 3000})
	assert.Equal(t, 3, cache.Len())
	_, ok := cache.Get("sensor_0")
	assert.False(t, ok)
	_, ok = cache.Get("sensor_3")
	assert.True(t, ok)
}

func TestStateCachePrune(t *testing.T) {
	cache := NewStateCache(100, 3_600_000)
	now := int64(1_700_000_000_000)

	cache.Set("fresh", AlertState{Level: models.AlertLevelWarning, Timestamp: now - 1000})
	cache.Set("stale", AlertState{Level: models.AlertLevelAlert, Timestamp: now - 3_600_001})

	removed := cache.Prune(now)
	assert.Equal(t, 1, removed)

	_, ok := cache.Get("fresh")
	assert.True(t, ok)
	_, ok = cache.Get("stale")
	assert.False(t, ok)
}

func TestStateCacheDelete(t *testing.T) {
	cache := NewStateCache(100, 3_600_000)
	v := 42.0
	cache.Set("sensor", AlertState{Level: models.AlertLevelWarning, Timestamp: 1, Value: &v})

	state, ok := cache.Get("sensor")
	require.True(t, ok)
	assert.Equal(t, 42.0, *state.Value)

	cache.Delete("sensor")
	_, ok = cache.Get("sensor")
	assert.False(t, ok)
}

func TestStateCacheDefaults(t *testing.T) {
	// 非法参数回退默认值
	cache := NewStateCache(0, 0)
	assert.Equal(t, 1000, cache.maxEntries)
	assert.Equal(t, int64(3_600_000), cache.maxAgeMs)
}
