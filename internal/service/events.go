package service

import (
	"context"
	"sync"
	"time"

	"github.com/sunbangamen/aj-mc-sub000/internal/events"
)

// eventState 事件追踪状态（上一轮快照 + 保留的事件列表）
type eventState struct {
	mu        sync.Mutex
	previous  []events.SiteSnapshot
	retained  []events.Event
	populated bool
}

// RefreshEvents 重算站点事件流
// 取当前全部站点快照，与上一轮对比合成事件，合并进保留列表后返回
func (s *MonitorService) RefreshEvents(ctx context.Context) ([]events.Event, error) {
	sites, err := s.siteRepo.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	nowMs := time.Now().UnixMilli()
	active, err := s.alertRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	alertCounts := make(map[string]int, len(sites))
	for _, alert := range active {
		alertCounts[alert.SiteID]++
	}

	current := make([]events.SiteSnapshot, 0, len(sites))
	for _, site := range sites {
		rep, err := s.SiteStatus(ctx, site.ID)
		if err != nil {
			continue
		}
		current = append(current, events.SiteSnapshot{
			SiteID:     site.ID,
			SiteName:   site.Name,
			Status:     rep.Status,
			Timestamp:  rep.Timestamp,
			AlertCount: alertCounts[site.ID],
		})
	}

	s.events.mu.Lock()
	defer s.events.mu.Unlock()

	var fresh []events.Event
	if s.events.populated {
		fresh = events.Track(current, s.events.previous, nowMs)
	}
	s.events.previous = current
	s.events.populated = true
	s.events.retained = events.Merge(s.events.retained, fresh)

	out := make([]events.Event, len(s.events.retained))
	copy(out, s.events.retained)
	return out, nil
}
