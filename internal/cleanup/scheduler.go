package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/evaluator"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
)

// Scheduler 清理调度器
// 周期性裁剪报警历史、传感器历史和内存中的报警状态缓存
// 进程内同一时间只允许一个实例在跑：重复 Start 会先停掉已有的（幂等重启）
type Scheduler struct {
	cfg     *config.Config
	alerts  *repository.AlertRepository
	sensors *repository.SensorRepository
	sites   *repository.SiteRepository
	states  *evaluator.StateCache
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler 创建清理调度器
func NewScheduler(
	cfg *config.Config,
	alerts *repository.AlertRepository,
	sensors *repository.SensorRepository,
	sites *repository.SiteRepository,
	states *evaluator.StateCache,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		alerts:  alerts,
		sensors: sensors,
		sites:   sites,
		states:  states,
		logger:  logger,
	}
}

// Start 启动调度：约 5 秒后执行首轮，之后按配置周期执行
// 已有实例在跑时先停掉再启动
func (s *Scheduler) Start(ctx context.Context) {
	s.Stop()

	s.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	initialDelay := time.Duration(s.cfg.Cleanup.InitialDelaySec) * time.Second
	interval := time.Duration(s.cfg.Cleanup.IntervalHours) * time.Hour

	go func() {
		defer close(done)

		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
			s.runOnce(runCtx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.runOnce(runCtx)
			}
		}
	}()

	s.logger.Info("Cleanup scheduler started",
		zap.Duration("initial_delay", initialDelay),
		zap.Duration("interval", interval),
	)
}

// Stop 停止调度；挂起的定时器被清除，已发出的删除不取消
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		s.logger.Info("Cleanup scheduler stopped")
	}
}

// runOnce 执行一轮清理
func (s *Scheduler) runOnce(ctx context.Context) {
	now := time.Now().UnixMilli()

	// 1. 报警历史按保留期裁剪
	alertCutoff := now - int64(s.cfg.Cleanup.AlertRetentionDays)*24*60*60*1000
	alertDeleted, err := s.alerts.DeleteHistoryOlderThan(ctx, alertCutoff, s.cfg.Cleanup.AlertBatchSize)
	if err != nil {
		s.logger.Error("Failed to prune alert history",
			zap.Error(err),
		)
	}

	// 2. 传感器读数历史裁剪（负保留期 = 全部删除）
	sensorCutoff := now - int64(s.cfg.Cleanup.SensorRetentionDays)*24*60*60*1000
	if s.cfg.Cleanup.SensorRetentionDays < 0 {
		sensorCutoff = now
	}
	sensorDeleted := s.pruneSensorHistory(ctx, sensorCutoff)

	// 3. 内存报警状态缓存裁剪（超龄 + 容量）
	cachePruned := s.states.Prune(now)

	s.logger.Info("Cleanup pass finished",
		zap.Int("alert_history_deleted", alertDeleted),
		zap.Int("sensor_history_deleted", sensorDeleted),
		zap.Int("state_cache_pruned", cachePruned),
	)
}

func (s *Scheduler) pruneSensorHistory(ctx context.Context, cutoffMs int64) int {
	sites, err := s.sites.ListSites(ctx)
	if err != nil {
		s.logger.Error("Failed to list sites for history cleanup",
			zap.Error(err),
		)
		return 0
	}

	total := 0
	for _, site := range sites {
		sensors, err := s.sensors.SiteSensors(ctx, site.ID)
		if err != nil {
			s.logger.Error("Failed to list sensors for history cleanup",
				zap.String("site_id", site.ID),
				zap.Error(err),
			)
			continue
		}
		for key := range sensors {
			deleted, err := s.sensors.DeleteHistoryBefore(ctx, site.ID, key, cutoffMs, s.cfg.Cleanup.SensorBatchSize)
			if err != nil {
				s.logger.Error("Failed to prune sensor history",
					zap.String("site_id", site.ID),
					zap.String("sensor_key", key),
					zap.Error(err),
				)
				continue
			}
			total += deleted
		}
	}
	return total
}
