package evaluator

import (
	"sync"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// AlertState 单个传感器最近一次报警的缓存条目（去重判定用）
type AlertState struct {
	Level     models.AlertType
	Timestamp int64
	Value     *float64
}

// StateCache 按传感器键控的报警状态缓存
// 容量上限按最旧时间戳淘汰；超龄条目丢弃；回到 normal 时条目被整条删除
// 进程级单例，由服务对象持有；多 goroutine 访问需要互斥
type StateCache struct {
	mu         sync.Mutex
	entries    map[string]AlertState
	maxEntries int
	maxAgeMs   int64
}

// NewStateCache 创建状态缓存
func NewStateCache(maxEntries int, maxAgeMs int64) *StateCache {
	if maxEntries < 1 {
		maxEntries = 1000
	}
	if maxAgeMs <= 0 {
		maxAgeMs = 3_600_000
	}
	return &StateCache{
		entries:    make(map[string]AlertState),
		maxEntries: maxEntries,
		maxAgeMs:   maxAgeMs,
	}
}

// Get 读取条目
func (c *StateCache) Get(sensorID string) (AlertState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.entries[sensorID]
	return state, ok
}

// Set 写入条目；超出容量时先淘汰最旧时间戳的条目
func (c *StateCache) Set(sensorID string, state AlertState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sensorID] = state
	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// Delete 删除条目（传感器回到 normal 时调用）
func (c *StateCache) Delete(sensorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sensorID)
}

// Prune 丢弃超龄条目并执行容量裁剪，返回移除数量
func (c *StateCache) Prune(nowMs int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, state := range c.entries {
		if nowMs-state.Timestamp > c.maxAgeMs {
			delete(c.entries, id)
			removed++
		}
	}
	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
		removed++
	}
	return removed
}

// Len 当前条目数
func (c *StateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *StateCache) evictOldestLocked() {
	var oldestID string
	var oldestTs int64 = -1
	for id, state := range c.entries {
		if oldestTs < 0 || state.Timestamp < oldestTs {
			oldestTs = state.Timestamp
			oldestID = id
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
	}
}
