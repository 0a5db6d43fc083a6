package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/logger"
	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
	"github.com/sunbangamen/aj-mc-sub000/internal/simulator"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "mc-simulator")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	mode, err := simulator.ParseMode(cfg.Simulator.Mode)
	if err != nil {
		log.Fatal("Invalid simulation mode",
			zap.String("mode", cfg.Simulator.Mode),
			zap.Error(err),
		)
	}

	// 3. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping redis",
			zap.Error(err),
		)
	}
	defer redisClient.Close()

	// 4. 仓库与生成器
	tree := store.NewRedisTree(redisClient, cfg.Monitor.KeyPrefix, log)
	siteRepo := repository.NewSiteRepository(tree, log)
	sensorRepo := repository.NewSensorRepository(tree, log)
	thresholdRepo := repository.NewThresholdRepository(tree, log)

	thresholds, err := thresholdRepo.Global(ctx)
	if err != nil {
		log.Warn("Failed to load global thresholds, using defaults",
			zap.Error(err),
		)
		thresholds = models.DefaultThresholds()
	}
	gen := simulator.NewGenerator(thresholds, cfg.Simulator.Seed)

	sites, err := siteRepo.ListSites(ctx)
	if err != nil {
		log.Fatal("Failed to list sites",
			zap.Error(err),
		)
	}
	if len(sites) == 0 {
		log.Warn("No sites found; simulator will idle until sites are created")
	}

	// 5. 启动模拟循环
	sim := simulator.New(siteRepo, sensorRepo, gen, mode, cfg.Simulator.IntervalSec, log)
	sim.Start(ctx)
	defer sim.Stop()

	// 6. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Info("Received signal, shutting down",
		zap.String("signal", sig.String()),
	)

	stats := sim.Stats()
	log.Info("Simulator exited",
		zap.Int64("cycles", stats.Cycles),
		zap.Int64("writes", stats.Writes),
		zap.Int64("errors", stats.Errors),
	)
}
