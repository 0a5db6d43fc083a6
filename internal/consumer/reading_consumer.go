package consumer

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/evaluator"
	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/notify"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// ReadingConsumer 读数消费者
// 订阅树存储中传感器路径的写入，对每条到达的读数运行阈值评估并持久化报警
type ReadingConsumer struct {
	cfg        *config.Config
	tree       store.Tree
	thresholds *repository.ThresholdRepository
	alerts     *repository.AlertRepository
	eval       *evaluator.Evaluator
	notifier   notify.Notifier
	logger     *zap.Logger

	// 连接/解码失败计数（统计用）
	errorCount atomic.Int64
}

// NewReadingConsumer 创建读数消费者
func NewReadingConsumer(
	cfg *config.Config,
	tree store.Tree,
	thresholds *repository.ThresholdRepository,
	alerts *repository.AlertRepository,
	eval *evaluator.Evaluator,
	notifier notify.Notifier,
	logger *zap.Logger,
) *ReadingConsumer {
	return &ReadingConsumer{
		cfg:        cfg,
		tree:       tree,
		thresholds: thresholds,
		alerts:     alerts,
		eval:       eval,
		notifier:   notifier,
		logger:     logger,
	}
}

// Start 订阅并消费，阻塞直到 ctx 取消
func (c *ReadingConsumer) Start(ctx context.Context) error {
	events, stop, err := c.tree.Subscribe(ctx, "sensors/*")
	if err != nil {
		return err
	}
	defer stop()

	c.logger.Info("Reading consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Reading consumer stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				c.logger.Info("Reading consumer stopped")
				return nil
			}
			c.handleEvent(ctx, ev, time.Now().UnixMilli())
		}
	}
}

// ErrorCount 累计错误数
func (c *ReadingConsumer) ErrorCount() int64 {
	return c.errorCount.Load()
}

// handleEvent 处理一次传感器写入
// 路径格式: sensors/{siteId}/{sensorKey}；历史快照路径跳过
func (c *ReadingConsumer) handleEvent(ctx context.Context, ev store.Event, nowMs int64) {
	parts := strings.Split(ev.Path, "/")
	if len(parts) != 3 || parts[0] != "sensors" {
		return
	}
	siteID, sensorKey := parts[1], parts[2]

	var reading models.SensorReading
	if err := json.Unmarshal(ev.Payload, &reading); err != nil {
		c.logger.Warn("Skipping undecodable reading event",
			zap.String("path", ev.Path),
			zap.Error(err),
		)
		c.errorCount.Add(1)
		return
	}

	thresholds, err := c.thresholds.Resolve(ctx, siteID)
	if err != nil {
		// 本次事件跳过，下一条写入会重试
		c.logger.Error("Failed to resolve thresholds, skipping event",
			zap.String("site_id", siteID),
			zap.Error(err),
		)
		c.errorCount.Add(1)
		return
	}

	alerts := c.eval.Evaluate(siteID, sensorKey, &reading, thresholds, nowMs)
	windowMs := c.cfg.Monitor.DuplicateWindowSec * 1000

	for i := range alerts {
		alert := &alerts[i]

		// 持久化前的二次去重（按 {siteId, sensorKey, type} 三元组）
		dup, err := c.alerts.HasRecentDuplicate(ctx, alert.SiteID, alert.SensorKey, alert.Type, nowMs, windowMs)
		if err != nil {
			c.logger.Error("Duplicate check failed, skipping alert",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
			c.errorCount.Add(1)
			continue
		}
		if dup {
			c.logger.Debug("Suppressing duplicate alert",
				zap.String("site_id", alert.SiteID),
				zap.String("sensor_key", alert.SensorKey),
				zap.String("type", string(alert.Type)),
			)
			continue
		}

		if err := c.alerts.Create(ctx, alert); err != nil {
			c.logger.Error("Failed to persist alert",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
			c.errorCount.Add(1)
			continue
		}

		if err := c.notifier.NotifyAlert(ctx, alert); err != nil {
			// 投递尽力而为，失败不影响评估
			c.logger.Warn("Failed to notify alert",
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		}
	}
}
