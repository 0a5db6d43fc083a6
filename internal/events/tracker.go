package events

import (
	"fmt"
	"sort"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// MaxEvents 保留的事件上限
const MaxEvents = 10

// 事件类型
const (
	TypeStatusChange   = "status_change"
	TypeWentOffline    = "went_offline"
	TypeAlertTriggered = "alert_triggered"
)

// SiteSnapshot 事件比对用的站点快照
type SiteSnapshot struct {
	SiteID     string        `json:"siteId"`
	SiteName   string        `json:"siteName"`
	Status     models.Status `json:"status"`
	Timestamp  int64         `json:"timestamp"`
	AlertCount int           `json:"alertCount"`
}

// Event 人类可读的站点事件
type Event struct {
	ID        string `json:"id"`
	SiteID    string `json:"siteId"`
	SiteName  string `json:"siteName"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Track 对比当前与上一轮站点快照，合成事件列表
// 纯函数，不持久化；最多 MaxEvents 条，按时间戳新者在前，按 ID 去重
func Track(current, previous []SiteSnapshot, nowMs int64) []Event {
	prevByID := make(map[string]SiteSnapshot, len(previous))
	for _, snap := range previous {
		prevByID[snap.SiteID] = snap
	}

	var events []Event
	for _, cur := range current {
		prev, seen := prevByID[cur.SiteID]
		if !seen {
			continue
		}

		if cur.Status != prev.Status {
			ts := cur.Timestamp
			if ts == 0 {
				ts = nowMs
			}
			if cur.Status == models.StatusOffline {
				events = append(events, Event{
					ID:        eventID(cur.SiteID, TypeWentOffline, ts),
					SiteID:    cur.SiteID,
					SiteName:  cur.SiteName,
					Type:      TypeWentOffline,
					Message:   fmt.Sprintf("%s went offline", cur.SiteName),
					Timestamp: ts,
				})
			} else {
				events = append(events, Event{
					ID:        eventID(cur.SiteID, TypeStatusChange, ts),
					SiteID:    cur.SiteID,
					SiteName:  cur.SiteName,
					Type:      TypeStatusChange,
					Message:   fmt.Sprintf("%s status changed: %s → %s", cur.SiteName, prev.Status, cur.Status),
					Timestamp: ts,
				})
			}
		}

		if cur.AlertCount > prev.AlertCount {
			events = append(events, Event{
				ID:        eventID(cur.SiteID, TypeAlertTriggered, nowMs),
				SiteID:    cur.SiteID,
				SiteName:  cur.SiteName,
				Type:      TypeAlertTriggered,
				Message:   fmt.Sprintf("%s triggered %d new alert(s)", cur.SiteName, cur.AlertCount-prev.AlertCount),
				Timestamp: nowMs,
			})
		}
	}

	return Merge(nil, events)
}

// Merge 合并既有事件与新事件：按 ID 去重，新者在前，截断到 MaxEvents
// 调用方负责保留上一轮结果并传入
func Merge(existing, fresh []Event) []Event {
	seen := make(map[string]struct{}, len(existing)+len(fresh))
	merged := make([]Event, 0, len(existing)+len(fresh))

	for _, ev := range append(fresh, existing...) {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		merged = append(merged, ev)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})

	if len(merged) > MaxEvents {
		merged = merged[:MaxEvents]
	}
	return merged
}

// eventID 确定性事件 ID：同一变化在多次计算中得到相同 ID，便于去重
func eventID(siteID, eventType string, tsMs int64) string {
	return fmt.Sprintf("%s_%s_%d", siteID, eventType, tsMs)
}
