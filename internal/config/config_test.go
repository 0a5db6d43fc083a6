package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "mc/sites/+/sensors/+", cfg.MQTT.Topic)

	assert.Equal(t, "mc:", cfg.Monitor.KeyPrefix)
	assert.Equal(t, 20, cfg.Monitor.RepStatusTTLSec)
	assert.Equal(t, 1000, cfg.Monitor.Cache.MaxEntries)
	assert.Equal(t, int64(3600), cfg.Monitor.Cache.MaxAgeSec)
	assert.Equal(t, int64(300), cfg.Monitor.DuplicateWindowSec)

	assert.Equal(t, 3, cfg.Simulator.IntervalSec)
	assert.Equal(t, "random", cfg.Simulator.Mode)

	assert.Equal(t, 24, cfg.Cleanup.IntervalHours)
	assert.Equal(t, 30, cfg.Cleanup.AlertRetentionDays)

	assert.Empty(t, cfg.Notify.WebhookURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("STORE_KEY_PREFIX", "dev:")
	t.Setenv("REP_STATUS_TTL_SEC", "0")
	t.Setenv("SIM_MODE", "scenario")
	t.Setenv("SIM_INTERVAL_SEC", "5")
	t.Setenv("ALERT_WEBHOOK_URL", "http://hooks.internal/alerts")
	t.Setenv("CLEANUP_SENSOR_RETENTION_DAYS", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "dev:", cfg.Monitor.KeyPrefix)
	assert.Equal(t, 0, cfg.Monitor.RepStatusTTLSec)
	assert.Equal(t, "scenario", cfg.Simulator.Mode)
	assert.Equal(t, 5, cfg.Simulator.IntervalSec)
	assert.Equal(t, "http://hooks.internal/alerts", cfg.Notify.WebhookURL)
	// 负数保留（表示删除全部传感器历史）
	assert.Equal(t, -1, cfg.Cleanup.SensorRetentionDays)
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	// 非法数字回退默认值
	assert.Equal(t, 0, cfg.Redis.DB)
}
