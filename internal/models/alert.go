package models

import (
	"fmt"

	"github.com/google/uuid"
)

// AlertType 报警类型
type AlertType string

const (
	AlertLevelWarning  AlertType = "warning"
	AlertLevelAlert    AlertType = "alert"
	AlertLevelCritical AlertType = "critical"
	AlertLevelOffline  AlertType = "offline"
	AlertBatteryLow    AlertType = "battery_low"
	AlertSignalWeak    AlertType = "signal_weak"
	AlertMaintenance   AlertType = "maintenance_due"
)

// Priority 报警优先级（数值越小越紧急；相同优先级按时间戳新者优先）
func (t AlertType) Priority() int {
	switch t {
	case AlertLevelCritical:
		return 0
	case AlertLevelOffline:
		return 1
	case AlertLevelAlert:
		return 2
	case AlertLevelWarning, AlertBatteryLow, AlertSignalWeak:
		return 3
	case AlertMaintenance:
		return 4
	}
	return 5
}

// Color 报警显示颜色（类型标识的一部分）
func (t AlertType) Color() string {
	switch t {
	case AlertLevelCritical:
		return "#d32f2f"
	case AlertLevelOffline:
		return "#757575"
	case AlertLevelAlert:
		return "#f57c00"
	case AlertLevelWarning, AlertBatteryLow, AlertSignalWeak:
		return "#fbc02d"
	case AlertMaintenance:
		return "#1976d2"
	}
	return "#9e9e9e"
}

// Icon 报警显示图标（类型标识的一部分）
func (t AlertType) Icon() string {
	switch t {
	case AlertLevelCritical:
		return "error"
	case AlertLevelOffline:
		return "cloud_off"
	case AlertLevelAlert:
		return "warning"
	case AlertLevelWarning:
		return "report_problem"
	case AlertBatteryLow:
		return "battery_alert"
	case AlertSignalWeak:
		return "signal_wifi_off"
	case AlertMaintenance:
		return "build"
	}
	return "info"
}

// Alert 报警事件记录
type Alert struct {
	ID             string         `json:"id"`
	Type           AlertType      `json:"type"`
	SiteID         string         `json:"siteId"`
	SensorKey      string         `json:"sensorKey"`
	Message        string         `json:"message"`
	Timestamp      int64          `json:"timestamp"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedAt int64          `json:"acknowledgedAt,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// NewAlertID 生成报警ID（站点 + 传感器 + 级别 + 随机后缀，不复用）
func NewAlertID(siteID, sensorKey string, t AlertType) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s_%s_%s", siteID, sensorKey, t, suffix)
}

// StripNilData 移除 Data 中的 nil 字段（持久化前调用）
func (a *Alert) StripNilData() {
	for k, v := range a.Data {
		if v == nil {
			delete(a.Data, k)
		}
	}
	if len(a.Data) == 0 {
		a.Data = nil
	}
}
