package config

import (
	"os"
	"strconv"
)

// Config 监控服务配置
type Config struct {
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	MQTT struct {
		Enabled  bool
		Broker   string
		ClientID string
		Username string
		Password string
		QoS      byte
		Topic    string // 传感器上报主题（如 "mc/sites/+/sensors/+"）
	}

	Monitor struct {
		// KeyPrefix 树存储键前缀
		KeyPrefix string

		// RepStatusTTLSec 代表状态缓存 TTL（秒），0 表示不缓存
		RepStatusTTLSec int

		// 传感器报警状态缓存
		Cache struct {
			MaxEntries int   // 最大条目数，超出按最旧时间戳淘汰
			MaxAgeSec  int64 // 条目最大存活时间（秒）
		}

		// DuplicateWindowSec 持久化前的二次去重窗口（秒）
		DuplicateWindowSec int64
	}

	Simulator struct {
		IntervalSec int    // 模拟周期（秒），限制在 1~30
		Mode        string // random / scenario / gradual
		Seed        int64  // 随机种子，0 表示按时间取
	}

	Cleanup struct {
		IntervalHours       int
		InitialDelaySec     int
		AlertRetentionDays  int
		AlertBatchSize      int
		SensorRetentionDays int // 负数表示删除全部历史
		SensorBatchSize     int
	}

	Notify struct {
		WebhookURL string // 为空则不通知
		TimeoutSec int
		RetryCount int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量，带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "mc-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "mc/sites/+/sensors/+")

	cfg.Monitor.KeyPrefix = getEnv("STORE_KEY_PREFIX", "mc:")
	cfg.Monitor.RepStatusTTLSec = getEnvInt("REP_STATUS_TTL_SEC", 20)
	cfg.Monitor.Cache.MaxEntries = getEnvInt("ALERT_CACHE_MAX_ENTRIES", 1000)
	cfg.Monitor.Cache.MaxAgeSec = int64(getEnvInt("ALERT_CACHE_MAX_AGE_SEC", 3600))
	cfg.Monitor.DuplicateWindowSec = int64(getEnvInt("ALERT_DUP_WINDOW_SEC", 300))

	cfg.Simulator.IntervalSec = getEnvInt("SIM_INTERVAL_SEC", 3)
	cfg.Simulator.Mode = getEnv("SIM_MODE", "random")
	cfg.Simulator.Seed = 0

	cfg.Cleanup.IntervalHours = getEnvInt("CLEANUP_INTERVAL_HOURS", 24)
	cfg.Cleanup.InitialDelaySec = getEnvInt("CLEANUP_INITIAL_DELAY_SEC", 5)
	cfg.Cleanup.AlertRetentionDays = getEnvInt("CLEANUP_ALERT_RETENTION_DAYS", 30)
	cfg.Cleanup.AlertBatchSize = getEnvInt("CLEANUP_ALERT_BATCH_SIZE", 100)
	cfg.Cleanup.SensorRetentionDays = getEnvInt("CLEANUP_SENSOR_RETENTION_DAYS", 30)
	cfg.Cleanup.SensorBatchSize = getEnvInt("CLEANUP_SENSOR_BATCH_SIZE", 200)

	cfg.Notify.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Notify.TimeoutSec = getEnvInt("ALERT_WEBHOOK_TIMEOUT_SEC", 10)
	cfg.Notify.RetryCount = getEnvInt("ALERT_WEBHOOK_RETRY_COUNT", 3)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
