package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

func snapshot(siteID string, status models.Status, tsMs int64, alertCount int) SiteSnapshot {
	return SiteSnapshot{
		SiteID:     siteID,
		SiteName:   "Site " + siteID,
		Status:     status,
		Timestamp:  tsMs,
		AlertCount: alertCount,
	}
}

func TestTrackStatusChange(t *testing.T) {
	now := int64(1_700_000_000_000)
	previous := []SiteSnapshot{
		snapshot("s1", models.StatusNormal, now-60_000, 0),
		snapshot("s2", models.StatusWarning, now-60_000, 1),
	}
	current := []SiteSnapshot{
		snapshot("s1", models.StatusWarning, now-1000, 0),
		snapshot("s2", models.StatusWarning, now-1000, 1),
	}

	events := Track(current, previous, now)
	require.Len(t, events, 1)
	assert.Equal(t, TypeStatusChange, events[0].Type)
	assert.Equal(t, "s1", events[0].SiteID)
	assert.Contains(t, events[0].Message, "normal")
	assert.Contains(t, events[0].Message, "warning")
}

func TestTrackWentOffline(t *testing.T) {
	now := int64(1_700_000_000_000)
	previous := []SiteSnapshot{snapshot("s1", models.StatusNormal, now-60_000, 0)}
	current := []SiteSnapshot{snapshot("s1", models.StatusOffline, now-1000, 0)}

	events := Track(current, previous, now)
	require.Len(t, events, 1)
	// 转为 offline 用专门的事件类型
	assert.Equal(t, TypeWentOffline, events[0].Type)
	assert.Contains(t, events[0].Message, "went offline")
}

func TestTrackAlertTriggered(t *testing.T) {
	now := int64(1_700_000_000_000)
	previous := []SiteSnapshot{snapshot("s1", models.StatusAlert, now-60_000, 1)}
	current := []SiteSnapshot{snapshot("s1", models.StatusAlert, now-1000, 3)}

	events := Track(current, previous, now)
	require.Len(t, events, 1)
	assert.Equal(t, TypeAlertTriggered, events[0].Type)
	assert.Contains(t, events[0].Message, "2 new alert(s)")

	// 数量减少不产生事件
	events = Track(previous, current, now)
	assert.Empty(t, events)
}

func TestTrackSkipsUnseenSites(t *testing.T) {
	now := int64(1_700_000_000_000)
	// 上一轮没见过的站点不产生事件（首轮静默）
	current := []SiteSnapshot{snapshot("new", models.StatusAlert, now, 5)}
	events := Track(current, nil, now)
	assert.Empty(t, events)
}

func TestMergeDedupAndCap(t *testing.T) {
	now := int64(1_700_000_000_000)

	var existing []Event
	for i := 0; i < 8; i++ {
		existing = append(existing, Event{
			ID:        fmt.Sprintf("ev_%d", i),
			Timestamp: now + int64(i)*1000,
		})
	}

	fresh := []Event{
		// 与既有事件重复的 ID 丢弃
		{ID: "ev_3", Timestamp: now + 3000},
		{ID: "ev_new_1", Timestamp: now + 20_000},
		{ID: "ev_new_2", Timestamp: now + 21_000},
		{ID: "ev_new_3", Timestamp: now + 22_000},
	}

	merged := Merge(existing, fresh)
	// 8 + 3 新事件 = 11，截断到上限 10
	require.Len(t, merged, MaxEvents)

	// 新者在前
	assert.Equal(t, "ev_new_3", merged[0].ID)
	assert.Equal(t, "ev_new_2", merged[1].ID)

	// 最旧的一条被截掉
	for _, ev := range merged {
		assert.NotEqual(t, "ev_0", ev.ID)
	}

	// 重复 ID 只出现一次
	seen := map[string]int{}
	for _, ev := range merged {
		seen[ev.ID]++
	}
	assert.Equal(t, 1, seen["ev_3"])
}

func TestEventIDDeterministic(t *testing.T) {
	// 同一变化多次计算得到相同 ID，靠它去重
	a := eventID("s1", TypeStatusChange, 123)
	b := eventID("s1", TypeStatusChange, 123)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, eventID("s1", TypeWentOffline, 123))
}
