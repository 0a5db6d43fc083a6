package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/cleanup"
	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/consumer"
	"github.com/sunbangamen/aj-mc-sub000/internal/evaluator"
	"github.com/sunbangamen/aj-mc-sub000/internal/ingest"
	"github.com/sunbangamen/aj-mc-sub000/internal/notify"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
	"github.com/sunbangamen/aj-mc-sub000/internal/status"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// MonitorService 监控服务（整合各层）
// 报警状态缓存与清理定时器都由本对象持有：进程内单缓存、单定时器
type MonitorService struct {
	cfg         *config.Config
	redisClient *redis.Client
	logger      *zap.Logger

	tree          store.Tree
	siteRepo      *repository.SiteRepository
	sensorRepo    *repository.SensorRepository
	thresholdRepo *repository.ThresholdRepository
	alertRepo     *repository.AlertRepository

	states      *evaluator.StateCache
	repCache    *status.Cache
	eval        *evaluator.Evaluator
	notifier    notify.Notifier
	consumer    *consumer.ReadingConsumer
	cleanup     *cleanup.Scheduler
	mqttConsume *ingest.MQTTConsumer

	events eventState
}

// NewMonitorService 创建监控服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 2. 树存储与仓库层
	tree := store.NewRedisTree(redisClient, cfg.Monitor.KeyPrefix, logger)
	siteRepo := repository.NewSiteRepository(tree, logger)
	sensorRepo := repository.NewSensorRepository(tree, logger)
	thresholdRepo := repository.NewThresholdRepository(tree, logger)
	alertRepo := repository.NewAlertRepository(tree, logger)

	// 3. 评估层（缓存由服务对象持有）
	states := evaluator.NewStateCache(cfg.Monitor.Cache.MaxEntries, cfg.Monitor.Cache.MaxAgeSec*1000)
	repCache := status.NewCache(time.Duration(cfg.Monitor.RepStatusTTLSec) * time.Second)
	eval := evaluator.New(states, logger)

	// 4. 通知层
	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(
			cfg.Notify.WebhookURL,
			time.Duration(cfg.Notify.TimeoutSec)*time.Second,
			cfg.Notify.RetryCount,
			logger,
		)
	}

	// 5. 消费与清理
	readingConsumer := consumer.NewReadingConsumer(cfg, tree, thresholdRepo, alertRepo, eval, notifier, logger)
	cleanupScheduler := cleanup.NewScheduler(cfg, alertRepo, sensorRepo, siteRepo, states, logger)

	svc := &MonitorService{
		cfg:           cfg,
		redisClient:   redisClient,
		logger:        logger,
		tree:          tree,
		siteRepo:      siteRepo,
		sensorRepo:    sensorRepo,
		thresholdRepo: thresholdRepo,
		alertRepo:     alertRepo,
		states:        states,
		repCache:      repCache,
		eval:          eval,
		notifier:      notifier,
		consumer:      readingConsumer,
		cleanup:       cleanupScheduler,
	}

	// 6. 可选的 MQTT 接入桥
	if cfg.MQTT.Enabled {
		mqttConsumer, err := ingest.NewMQTTConsumer(cfg, sensorRepo, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt ingest: %w", err)
		}
		svc.mqttConsume = mqttConsumer
	}

	return svc, nil
}

// Start 启动服务，阻塞直到 ctx 取消
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor service")

	s.cleanup.Start(ctx)

	if s.mqttConsume != nil {
		if err := s.mqttConsume.Start(ctx); err != nil {
			return err
		}
	}

	return s.consumer.Start(ctx)
}

// Stop 停止服务并释放资源
func (s *MonitorService) Stop() {
	s.cleanup.Stop()
	if s.mqttConsume != nil {
		s.mqttConsume.Stop()
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Warn("Failed to close redis client",
			zap.Error(err),
		)
	}
	s.logger.Info("Monitor service stopped")
}

// SiteStatus 计算站点代表状态（带短 TTL 缓存）
func (s *MonitorService) SiteStatus(ctx context.Context, siteID string) (status.Representative, error) {
	if rep, ok := s.repCache.Get(siteID); ok {
		return rep, nil
	}

	sensors, err := s.sensorRepo.SiteSensors(ctx, siteID)
	if err != nil {
		return status.Representative{}, err
	}
	thresholds, err := s.thresholdRepo.Resolve(ctx, siteID)
	if err != nil {
		return status.Representative{}, err
	}

	rep := status.Compute(status.NormalizeSensors(sensors), thresholds, time.Now().UnixMilli())
	s.repCache.Put(siteID, rep)
	return rep, nil
}
