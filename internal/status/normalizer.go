package status

import (
	"fmt"
	"sort"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// NormalizeSensors 将站点的原始传感器子树规范化为平铺列表
// 同时兼容 "{type}_{index}" 键和无索引的旧键（视为 1 号）
// 保留键 "history" 跳过；无法解析的条目静默排除
func NormalizeSensors(raw map[string]*models.SensorReading) []models.SensorInfo {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sensors := make([]models.SensorInfo, 0, len(keys))
	for _, key := range keys {
		if key == "history" {
			continue
		}
		reading := raw[key]
		if reading == nil {
			continue
		}

		sensorType, index, err := models.ParseSensorKey(key)
		if err != nil {
			continue
		}

		sensors = append(sensors, models.SensorInfo{
			Key:         key,
			Type:        sensorType,
			Index:       index,
			DisplayName: fmt.Sprintf("%s #%d", sensorType.Label(), index),
			Value:       reading.Value(sensorType),
			Unit:        sensorType.Unit(),
			Location:    reading.Location,
			Data:        reading,
		})
	}
	return sensors
}
