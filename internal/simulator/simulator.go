package simulator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
)

const (
	minIntervalSec = 1
	maxIntervalSec = 30

	// 超过该耗时的模拟周期会记录告警日志
	slowCycleThreshold = 100 * time.Millisecond
)

// Stats 模拟运行统计
type Stats struct {
	Cycles        int64
	Writes        int64
	Errors        int64
	LastCycleMs   int64
	LastCycleTime int64
}

// Simulator 传感器数据模拟器
// 显式状态机 {Stopped, Running}；配置变更 = stop 后 start（非原子，演示用途可接受）
type Simulator struct {
	sites   *repository.SiteRepository
	sensors *repository.SensorRepository
	gen     *Generator
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	mode     Mode
	interval time.Duration
	stats    Stats
}

// New 创建模拟器
func New(sites *repository.SiteRepository, sensors *repository.SensorRepository, gen *Generator, mode Mode, intervalSec int, logger *zap.Logger) *Simulator {
	return &Simulator{
		sites:    sites,
		sensors:  sensors,
		gen:      gen,
		logger:   logger,
		mode:     mode,
		interval: clampInterval(intervalSec),
	}
}

func clampInterval(sec int) time.Duration {
	if sec < minIntervalSec {
		sec = minIntervalSec
	}
	if sec > maxIntervalSec {
		sec = maxIntervalSec
	}
	return time.Duration(sec) * time.Second
}

// Start 启动模拟循环；已在运行时为空操作
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.runLoop(runCtx, s.mode, s.interval, s.done)

	s.logger.Info("Simulator started",
		zap.String("mode", string(s.mode)),
		zap.Duration("interval", s.interval),
	)
}

// Stop 停止模拟循环；挂起的定时器被清除，已发出的写入不取消
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		s.logger.Info("Simulator stopped")
	}
}

// Reconfigure 变更模式/周期：先停再起（短暂间隙，非原子切换）
func (s *Simulator) Reconfigure(ctx context.Context, mode Mode, intervalSec int) {
	s.Stop()

	s.mu.Lock()
	s.mode = mode
	s.interval = clampInterval(intervalSec)
	s.mu.Unlock()

	s.Start(ctx)
}

// Stats 读取运行统计（副本）
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Simulator) runLoop(ctx context.Context, mode Mode, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即执行一轮
	s.runCycle(ctx, mode)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx, mode)
		}
	}
}

// runCycle 对全部 active 站点做一轮写入（每个传感器顺序写，不并行）
func (s *Simulator) runCycle(ctx context.Context, mode Mode) {
	start := time.Now()
	nowMs := start.UnixMilli()

	sites, err := s.sites.ListSites(ctx)
	if err != nil {
		s.logger.Error("Failed to list sites, skipping cycle",
			zap.Error(err),
		)
		s.mu.Lock()
		s.stats.Errors++
		s.mu.Unlock()
		return
	}

	var writes, errors int64
	for _, site := range sites {
		if site.Status != models.SiteActive {
			continue
		}
		for sensorType, count := range site.EffectiveSensorConfig() {
			for n := 1; n <= count; n++ {
				select {
				case <-ctx.Done():
					return
				default:
				}

				reading, err := s.gen.Generate(site.ID, sensorType, n, mode, nowMs)
				if err != nil {
					s.logger.Error("Failed to generate reading",
						zap.String("site_id", site.ID),
						zap.String("sensor_type", string(sensorType)),
						zap.Error(err),
					)
					errors++
					continue
				}

				key := models.SensorKey(sensorType, n)
				if err := s.sensors.WriteReading(ctx, site.ID, key, reading); err != nil {
					// 该条写入跳过，本轮继续
					s.logger.Error("Failed to write simulated reading",
						zap.String("site_id", site.ID),
						zap.String("sensor_key", key),
						zap.Error(err),
					)
					errors++
					continue
				}
				writes++
			}
		}
	}

	elapsed := time.Since(start)

	s.mu.Lock()
	s.stats.Cycles++
	s.stats.Writes += writes
	s.stats.Errors += errors
	s.stats.LastCycleMs = elapsed.Milliseconds()
	s.stats.LastCycleTime = nowMs
	s.mu.Unlock()

	if elapsed > slowCycleThreshold {
		s.logger.Warn("Simulation cycle took longer than expected",
			zap.Duration("elapsed", elapsed),
			zap.Int64("writes", writes),
		)
	}
}
