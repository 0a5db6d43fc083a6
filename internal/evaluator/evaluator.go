package evaluator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// 硬件健康检查阈值
const (
	lowBatteryPercent = 20.0
	weakSignalDBm     = -70.0
	maintenanceDueMs  = int64(90) * 24 * 60 * 60 * 1000
)

// Evaluator 阈值评估器 / 报警生成器
// 对每条到达的读数独立执行；只生成新报警，从不修改既有报警
type Evaluator struct {
	states *StateCache
	logger *zap.Logger
}

// New 创建评估器
func New(states *StateCache, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		states: states,
		logger: logger,
	}
}

// Evaluate 评估一条读数，返回零或多条新报警
// 该类型无阈值配置或无对应数值字段时为空操作，不报错
func (e *Evaluator) Evaluate(siteID, sensorKey string, reading *models.SensorReading, thresholds models.ThresholdConfig, nowMs int64) []models.Alert {
	sensorType, _, err := models.ParseSensorKey(sensorKey)
	if err != nil {
		return nil
	}

	th, ok := thresholds[sensorType]
	if !ok || th == nil {
		return nil
	}

	sensorID := siteID + "/" + sensorKey
	var alerts []models.Alert

	// 1. 离线检查：最高优先级，绕过一切去重（安全优先，离线重复报警不抑制）
	ts := reading.EffectiveTimestamp()
	stale := th.OfflineTimeout > 0 && !models.IsFresh(ts, nowMs, th.OfflineTimeout)
	offline := reading.Status == models.StatusOffline || stale

	if offline {
		alerts = append(alerts, e.buildAlert(siteID, sensorKey, models.AlertLevelOffline, nowMs,
			fmt.Sprintf("Sensor %s at site %s is offline", sensorKey, siteID),
			map[string]any{
				"lastSeen": ts,
				"stale":    stale,
			},
		))
		e.states.Set(sensorID, AlertState{
			Level:     models.AlertLevelOffline,
			Timestamp: nowMs,
			Value:     nil,
		})
	} else if value := reading.Value(sensorType); value != nil {
		// 2. 数值阈值检查：严重优先（critical → alert → warning），首个命中生效
		if alert, emitted := e.checkValue(sensorID, siteID, sensorKey, sensorType, *value, th, nowMs); emitted {
			alerts = append(alerts, alert)
		}
	}

	// 3. 硬件健康检查：独立于上述检查，不做去重
	alerts = append(alerts, e.checkHardware(siteID, sensorKey, reading, nowMs)...)

	return alerts
}

// checkValue 数值阈值检查 + 去重判定
func (e *Evaluator) checkValue(sensorID, siteID, sensorKey string, sensorType models.SensorType, value float64, th *models.SensorThresholds, nowMs int64) (models.Alert, bool) {
	type band struct {
		level models.AlertType
		r     *models.Range
	}
	bands := []band{
		{models.AlertLevelCritical, th.Critical},
		{models.AlertLevelAlert, th.Alert},
		{models.AlertLevelWarning, th.Warning},
	}

	for _, b := range bands {
		if b.r == nil || !b.r.Contains(value) {
			continue
		}

		if !e.shouldEmit(sensorID, b.level, value, th, nowMs) {
			return models.Alert{}, false
		}

		e.states.Set(sensorID, AlertState{
			Level:     b.level,
			Timestamp: nowMs,
			Value:     &value,
		})
		return e.buildAlert(siteID, sensorKey, b.level, nowMs,
			fmt.Sprintf("%s at site %s reads %.1f%s (%s range %.1f-%.1f)",
				sensorType.Label(), siteID, value, sensorType.Unit(), b.level, b.r.Min, b.r.Max),
			map[string]any{
				"value":        value,
				"unit":         sensorType.Unit(),
				"thresholdMin": b.r.Min,
				"thresholdMax": b.r.Max,
			},
		), true
	}

	// 数值回到 normal 区域：删除缓存条目（自动解除，下次劣化不被抑制）
	if state, ok := e.states.Get(sensorID); ok && state.Level != models.AlertLevelOffline {
		e.states.Delete(sensorID)
	}
	return models.Alert{}, false
}

// shouldEmit 按缓存条目做去重判定
// 发出条件：无缓存 / 冷却已过 / 数值显著波动 / 严重度升级
func (e *Evaluator) shouldEmit(sensorID string, level models.AlertType, value float64, th *models.SensorThresholds, nowMs int64) bool {
	state, ok := e.states.Get(sensorID)
	if !ok {
		return true
	}

	if th.DuplicatePrevention != nil {
		if nowMs-state.Timestamp > th.DuplicatePrevention.For(level) {
			return true
		}
	} else {
		return true
	}

	if state.Value != nil {
		cached := *state.Value
		// 缓存值恰为 0 时变化比例无定义，一律放行
		if cached == 0 {
			return true
		}
		if th.Sensitivity != nil {
			change := math.Abs(value-cached) / math.Abs(cached)
			if change > th.Sensitivity.For(level) {
				return true
			}
		}
	}

	// 升级突破冷却
	if level == models.AlertLevelCritical && state.Level != models.AlertLevelCritical {
		return true
	}
	if level == models.AlertLevelAlert && state.Level == models.AlertLevelWarning {
		return true
	}

	return false
}

// checkHardware 硬件健康检查（电量 / 信号 / 维护到期）
func (e *Evaluator) checkHardware(siteID, sensorKey string, reading *models.SensorReading, nowMs int64) []models.Alert {
	var alerts []models.Alert

	if reading.BatteryLevel != nil && *reading.BatteryLevel < lowBatteryPercent {
		alerts = append(alerts, e.buildAlert(siteID, sensorKey, models.AlertBatteryLow, nowMs,
			fmt.Sprintf("Sensor %s battery at %.0f%%", sensorKey, *reading.BatteryLevel),
			map[string]any{"batteryLevel": *reading.BatteryLevel},
		))
	}

	if reading.SignalStrength != nil && *reading.SignalStrength < weakSignalDBm {
		alerts = append(alerts, e.buildAlert(siteID, sensorKey, models.AlertSignalWeak, nowMs,
			fmt.Sprintf("Sensor %s signal at %.0f dBm", sensorKey, *reading.SignalStrength),
			map[string]any{"signalStrength": *reading.SignalStrength},
		))
	}

	if reading.LastMaintenance > 0 {
		last := models.ToMillis(reading.LastMaintenance)
		if nowMs-last > maintenanceDueMs {
			alerts = append(alerts, e.buildAlert(siteID, sensorKey, models.AlertMaintenance, nowMs,
				fmt.Sprintf("Sensor %s maintenance overdue", sensorKey),
				map[string]any{"lastMaintenance": last},
			))
		}
	}

	return alerts
}

func (e *Evaluator) buildAlert(siteID, sensorKey string, level models.AlertType, nowMs int64, message string, data map[string]any) models.Alert {
	return models.Alert{
		ID:        models.NewAlertID(siteID, sensorKey, level),
		Type:      level,
		SiteID:    siteID,
		SensorKey: sensorKey,
		Message:   message,
		Timestamp: nowMs,
		Data:      data,
	}
}
