package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveSensorConfig(t *testing.T) {
	// sensorConfig 优先
	site := &Site{
		SensorConfig: map[SensorType]int{
			SensorUltrasonic: 2,
			"radar":          3, // 无效类型丢弃
			SensorHumidity:   0, // 非法数量丢弃
		},
		SensorTypes: []SensorType{SensorTemperature},
		SensorCount: 5,
	}
	cfg := site.EffectiveSensorConfig()
	assert.Equal(t, map[SensorType]int{SensorUltrasonic: 2}, cfg)

	// 旧格式：类型列表 × 每类数量
	site = &Site{
		SensorTypes: []SensorType{SensorTemperature, SensorPressure},
		SensorCount: 3,
	}
	cfg = site.EffectiveSensorConfig()
	assert.Equal(t, map[SensorType]int{SensorTemperature: 3, SensorPressure: 3}, cfg)

	// 数量缺省为 1
	site = &Site{SensorTypes: []SensorType{SensorHumidity}}
	cfg = site.EffectiveSensorConfig()
	assert.Equal(t, map[SensorType]int{SensorHumidity: 1}, cfg)

	// 无配置
	assert.Empty(t, (&Site{}).EffectiveSensorConfig())
}
