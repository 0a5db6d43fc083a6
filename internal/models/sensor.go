package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SensorType 传感器类型
type SensorType string

const (
	SensorUltrasonic  SensorType = "ultrasonic"
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorPressure    SensorType = "pressure"
)

// AllSensorTypes 支持的传感器类型列表（顺序固定，用于遍历）
var AllSensorTypes = []SensorType{
	SensorUltrasonic,
	SensorTemperature,
	SensorHumidity,
	SensorPressure,
}

// Valid 检查是否为支持的传感器类型
func (t SensorType) Valid() bool {
	switch t {
	case SensorUltrasonic, SensorTemperature, SensorHumidity, SensorPressure:
		return true
	}
	return false
}

// Unit 传感器数值单位
func (t SensorType) Unit() string {
	switch t {
	case SensorUltrasonic:
		return "cm"
	case SensorTemperature:
		return "°C"
	case SensorHumidity:
		return "%"
	case SensorPressure:
		return "hPa"
	}
	return ""
}

// Label 显示名称
func (t SensorType) Label() string {
	switch t {
	case SensorUltrasonic:
		return "Ultrasonic"
	case SensorTemperature:
		return "Temperature"
	case SensorHumidity:
		return "Humidity"
	case SensorPressure:
		return "Pressure"
	}
	return string(t)
}

// Status 传感器/站点状态
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusAlert   Status = "alert"
	StatusOffline Status = "offline"
)

// SeverityRank 状态严重度排序（代表状态计算用）
// offline:0 < normal:1 < warning:2 < alert:3
func SeverityRank(s Status) int {
	switch s {
	case StatusOffline:
		return 0
	case StatusNormal:
		return 1
	case StatusWarning:
		return 2
	case StatusAlert:
		return 3
	}
	return 0
}

// ToMillis 将秒或毫秒时间戳统一为毫秒
// 大于 1e12 视为毫秒，否则视为秒
func ToMillis(ts int64) int64 {
	if ts > 1_000_000_000_000 {
		return ts
	}
	return ts * 1000
}

// IsFresh 判断读数是否新鲜（未超过离线超时）
// 边界为严格小于：now - ts == timeout 即视为过期
// 未来时间戳容忍 120 秒（时钟偏差），超过视为无效/过期
func IsFresh(tsMs, nowMs, timeoutMs int64) bool {
	if tsMs > nowMs {
		return tsMs-nowMs <= 120_000
	}
	return nowMs-tsMs < timeoutMs
}

// ParseSensorKey 解析传感器键
// 格式: "{type}_{index}"（如 "ultrasonic_1"）；无索引的旧格式（"ultrasonic"）视为 1 号
func ParseSensorKey(key string) (SensorType, int, error) {
	idx := strings.Index(key, "_")
	if idx < 0 {
		t := SensorType(key)
		if !t.Valid() {
			return "", 0, fmt.Errorf("unknown sensor type: %s", key)
		}
		return t, 1, nil
	}

	t := SensorType(key[:idx])
	if !t.Valid() {
		return "", 0, fmt.Errorf("unknown sensor type: %s", key[:idx])
	}

	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("invalid sensor index in key: %s", key)
	}

	return t, n, nil
}

// SensorKey 构建传感器键
func SensorKey(t SensorType, index int) string {
	return fmt.Sprintf("%s_%d", t, index)
}

// HardwareMetadata 硬件元数据（可选字段，硬件健康检查用）
type HardwareMetadata struct {
	BatteryLevel    *float64 `json:"batteryLevel,omitempty"`    // 电池电量（%）
	SignalStrength  *float64 `json:"signalStrength,omitempty"`  // 信号强度（dBm）
	FirmwareVersion string   `json:"firmwareVersion,omitempty"`
	DeviceID        string   `json:"deviceId,omitempty"`
	InstallDate     int64    `json:"installDate,omitempty"`
	LastMaintenance int64    `json:"lastMaintenance,omitempty"` // 最后维护时间
	LastCalibration int64    `json:"lastCalibration,omitempty"`
	Accuracy        *float64 `json:"accuracy,omitempty"` // 精度（%）
	Reliability     string   `json:"reliability,omitempty"`
	ErrorCount      int      `json:"errorCount,omitempty"`
}

// SensorReading 传感器读数（单个传感器实例的一次测量快照）
// status 由写入方断言，本服务只做离线检测，不从数值反推状态
type SensorReading struct {
	Status     Status `json:"status,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	LastUpdate int64  `json:"lastUpdate,omitempty"`

	// 数值字段名随传感器类型而定，offline 时为 null
	Distance    *float64 `json:"distance,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`

	Location string `json:"location,omitempty"`

	HardwareMetadata

	// History 历史快照（时间戳键 → 过去的读数），按插入顺序为时间序
	History map[string]*SensorReading `json:"history,omitempty"`
}

// Value 按传感器类型取对应的数值字段（精确匹配，不做前缀匹配）
func (r *SensorReading) Value(t SensorType) *float64 {
	switch t {
	case SensorUltrasonic:
		return r.Distance
	case SensorTemperature:
		return r.Temperature
	case SensorHumidity:
		return r.Humidity
	case SensorPressure:
		return r.Pressure
	}
	return nil
}

// SetValue 按传感器类型写入数值字段
func (r *SensorReading) SetValue(t SensorType, v *float64) {
	switch t {
	case SensorUltrasonic:
		r.Distance = v
	case SensorTemperature:
		r.Temperature = v
	case SensorHumidity:
		r.Humidity = v
	case SensorPressure:
		r.Pressure = v
	}
}

// EffectiveTimestamp 取读数时间戳（timestamp 优先，缺省用 lastUpdate），已统一为毫秒
func (r *SensorReading) EffectiveTimestamp() int64 {
	if r.Timestamp != 0 {
		return ToMillis(r.Timestamp)
	}
	if r.LastUpdate != 0 {
		return ToMillis(r.LastUpdate)
	}
	return 0
}

// LatestHistoryTimestamp 取最近一条历史快照的时间戳（毫秒）及其状态
// 无历史时返回 (0, "")
func (r *SensorReading) LatestHistoryTimestamp() (int64, Status) {
	var bestTs int64
	var bestStatus Status
	for key, entry := range r.History {
		ts, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			if entry != nil {
				ts = entry.EffectiveTimestamp()
			}
		}
		ts = ToMillis(ts)
		if ts > bestTs {
			bestTs = ts
			if entry != nil {
				bestStatus = entry.Status
			}
		}
	}
	return bestTs, bestStatus
}

// SensorInfo 规范化后的传感器条目（状态规范化器输出）
type SensorInfo struct {
	Key         string         `json:"key"`
	Type        SensorType     `json:"type"`
	Index       int            `json:"index"`
	DisplayName string         `json:"displayName"`
	Value       *float64       `json:"value,omitempty"`
	Unit        string         `json:"unit"`
	Location    string         `json:"location,omitempty"`
	Data        *SensorReading `json:"data,omitempty"`
}
