package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/logger"
	"github.com/sunbangamen/aj-mc-sub000/internal/report"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// 报警历史导出工具：按天数范围导出 xlsx
func main() {
	var outPath string
	var days int
	flag.StringVar(&outPath, "out", "alert-report.xlsx", "output file path")
	flag.IntVar(&days, "days", 30, "how many days of history to export")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, "console", "mc-alert-report")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping redis",
			zap.Error(err),
		)
	}

	tree := store.NewRedisTree(redisClient, cfg.Monitor.KeyPrefix, log)
	alertRepo := repository.NewAlertRepository(tree, log)

	since := time.Now().AddDate(0, 0, -days).UnixMilli()
	alerts, err := alertRepo.ListHistory(ctx, since)
	if err != nil {
		log.Fatal("Failed to read alert history",
			zap.Error(err),
		)
	}

	data, err := report.GenerateAlertReport(alerts)
	if err != nil {
		log.Fatal("Failed to generate report",
			zap.Error(err),
		)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatal("Failed to write report file",
			zap.String("path", outPath),
			zap.Error(err),
		)
	}

	log.Info("Alert report written",
		zap.String("path", outPath),
		zap.Int("alerts", len(alerts)),
	)
}
