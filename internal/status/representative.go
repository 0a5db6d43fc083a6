package status

import (
	"sync"
	"time"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// Representative 站点代表状态：全部传感器的最差情况 + 判定来源
type Representative struct {
	Status    models.Status     `json:"status"`
	Timestamp int64             `json:"timestamp"`
	CauseKey  string            `json:"causeKey,omitempty"`
	CauseType models.SensorType `json:"causeType,omitempty"`
}

// Compute 计算站点代表状态
// 每个传感器取当前读数与最新历史中较新的一条；过期读数视为 offline；
// 按严重度取最差，平级按时间戳新者优先
func Compute(sensors []models.SensorInfo, thresholds models.ThresholdConfig, nowMs int64) Representative {
	if len(sensors) == 0 {
		return Representative{Status: models.StatusOffline, Timestamp: 0}
	}

	var best Representative
	bestRank := -1

	for _, sensor := range sensors {
		chosenTs, chosenStatus := chooseReading(sensor)

		effective := chosenStatus
		timeout := int64(0)
		if th, ok := thresholds[sensor.Type]; ok && th != nil {
			timeout = th.OfflineTimeout
		}
		if timeout > 0 && !models.IsFresh(chosenTs, nowMs, timeout) {
			effective = models.StatusOffline
		}

		rank := models.SeverityRank(effective)
		if rank > bestRank || (rank == bestRank && chosenTs > best.Timestamp) {
			bestRank = rank
			best = Representative{
				Status:    effective,
				Timestamp: chosenTs,
				CauseKey:  sensor.Key,
				CauseType: sensor.Type,
			}
		}
	}
	return best
}

// chooseReading 在当前读数与最新历史之间选较新的一条
func chooseReading(sensor models.SensorInfo) (int64, models.Status) {
	var ts int64
	var status models.Status

	if sensor.Data != nil {
		ts = sensor.Data.EffectiveTimestamp()
		status = sensor.Data.Status
		if historyTs, historyStatus := sensor.Data.LatestHistoryTimestamp(); historyTs > ts {
			ts = historyTs
			if historyStatus != "" {
				status = historyStatus
			}
		}
	}
	if status == "" {
		status = models.StatusOffline
	}
	return ts, status
}

// Cache 代表状态的短 TTL 缓存（按站点键控）
// 纯性能优化，正确性不依赖它
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rep       Representative
	expiresAt time.Time
}

// NewCache 创建缓存；ttl <= 0 表示禁用（Get 永远未命中）
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get 读取缓存条目
func (c *Cache) Get(siteID string) (Representative, bool) {
	if c.ttl <= 0 {
		return Representative{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[siteID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, siteID)
		return Representative{}, false
	}
	return entry.rep, true
}

// Put 写入缓存条目
func (c *Cache) Put(siteID string, rep Representative) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[siteID] = cacheEntry{
		rep:       rep,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate 使站点条目失效（阈值或读数变更时调用）
func (c *Cache) Invalidate(siteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, siteID)
}
