package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestNormalizeSensors(t *testing.T) {
	raw := map[string]*models.SensorReading{
		"ultrasonic_2":  {Status: models.StatusNormal, Distance: floatPtr(42), Location: "North"},
		"temperature_1": {Status: models.StatusWarning, Temperature: floatPtr(31)},
		// 保留键跳过
		"history": {Status: models.StatusNormal},
		// 无法解析的键静默排除
		"radar_1": {Status: models.StatusNormal},
		"bad":     nil,
	}

	sensors := NormalizeSensors(raw)
	require.Len(t, sensors, 2)

	// 按键排序输出
	assert.Equal(t, "temperature_1", sensors[0].Key)
	assert.Equal(t, models.SensorTemperature, sensors[0].Type)
	assert.Equal(t, 1, sensors[0].Index)
	assert.Equal(t, "Temperature #1", sensors[0].DisplayName)
	assert.Equal(t, 31.0, *sensors[0].Value)
	assert.Equal(t, "°C", sensors[0].Unit)

	assert.Equal(t, "ultrasonic_2", sensors[1].Key)
	assert.Equal(t, "Ultrasonic #2", sensors[1].DisplayName)
	assert.Equal(t, "North", sensors[1].Location)
}

func TestNormalizeLegacyKey(t *testing.T) {
	// 无索引的旧键视为 1 号
	raw := map[string]*models.SensorReading{
		"ultrasonic": {Status: models.StatusNormal, Distance: floatPtr(10)},
	}

	sensors := NormalizeSensors(raw)
	require.Len(t, sensors, 1)
	assert.Equal(t, 1, sensors[0].Index)
	assert.Equal(t, "Ultrasonic #1", sensors[0].DisplayName)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, NormalizeSensors(nil))
	assert.Empty(t, NormalizeSensors(map[string]*models.SensorReading{}))
}
