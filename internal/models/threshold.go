package models

import "fmt"

// Range 数值范围（含两端）
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains 判断数值是否落在范围内
func (r *Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SeverityDurations 按严重级别的时长配置（毫秒）
type SeverityDurations struct {
	Warning  int64 `json:"warning"`
	Alert    int64 `json:"alert"`
	Critical int64 `json:"critical"`
}

// For 按报警类型取时长
func (d *SeverityDurations) For(level AlertType) int64 {
	switch level {
	case AlertLevelWarning:
		return d.Warning
	case AlertLevelAlert:
		return d.Alert
	case AlertLevelCritical:
		return d.Critical
	}
	return 0
}

// SeverityFractions 按严重级别的比例配置（0~1 小数）
type SeverityFractions struct {
	Warning  float64 `json:"warning"`
	Alert    float64 `json:"alert"`
	Critical float64 `json:"critical"`
}

// For 按报警类型取比例
func (f *SeverityFractions) For(level AlertType) float64 {
	switch level {
	case AlertLevelWarning:
		return f.Warning
	case AlertLevelAlert:
		return f.Alert
	case AlertLevelCritical:
		return f.Critical
	}
	return 0
}

// SensorThresholds 单个传感器类型的阈值策略
type SensorThresholds struct {
	Normal   *Range `json:"normal,omitempty"`
	Warning  *Range `json:"warning,omitempty"`
	Alert    *Range `json:"alert,omitempty"`
	Critical *Range `json:"critical,omitempty"`

	// OfflineTimeout 离线超时（毫秒）
	OfflineTimeout int64 `json:"offline_timeout,omitempty"`

	// DuplicatePrevention 同级别报警冷却时间（毫秒）
	DuplicatePrevention *SeverityDurations `json:"duplicate_prevention,omitempty"`

	// Sensitivity 数值变化比例，超过则绕过冷却
	Sensitivity *SeverityFractions `json:"sensitivity,omitempty"`
}

// ThresholdConfig 按传感器类型的阈值配置
type ThresholdConfig map[SensorType]*SensorThresholds

// DefaultThresholds 全局默认阈值表
// 各类型的 normal/warning/alert 波段同时是模拟器的取值波段
func DefaultThresholds() ThresholdConfig {
	dup := func() *SeverityDurations {
		return &SeverityDurations{Warning: 900_000, Alert: 300_000, Critical: 60_000}
	}
	sens := func() *SeverityFractions {
		return &SeverityFractions{Warning: 0.15, Alert: 0.10, Critical: 0.05}
	}

	return ThresholdConfig{
		SensorUltrasonic: {
			Normal:              &Range{Min: 0, Max: 99},
			Warning:             &Range{Min: 100, Max: 199},
			Alert:               &Range{Min: 200, Max: 300},
			Critical:            &Range{Min: 301, Max: 600},
			OfflineTimeout:      60_000,
			DuplicatePrevention: dup(),
			Sensitivity:         sens(),
		},
		SensorTemperature: {
			Normal:              &Range{Min: -10, Max: 29},
			Warning:             &Range{Min: 30, Max: 35},
			Alert:               &Range{Min: 36, Max: 50},
			Critical:            &Range{Min: 51, Max: 80},
			OfflineTimeout:      60_000,
			DuplicatePrevention: dup(),
			Sensitivity:         sens(),
		},
		SensorHumidity: {
			Normal:              &Range{Min: 30, Max: 69},
			Warning:             &Range{Min: 70, Max: 84},
			Alert:               &Range{Min: 85, Max: 100},
			OfflineTimeout:      60_000,
			DuplicatePrevention: dup(),
			Sensitivity:         sens(),
		},
		SensorPressure: {
			Normal:              &Range{Min: 990, Max: 1019},
			Warning:             &Range{Min: 1020, Max: 1039},
			Alert:               &Range{Min: 1040, Max: 1060},
			Critical:            &Range{Min: 1061, Max: 1100},
			OfflineTimeout:      60_000,
			DuplicatePrevention: dup(),
			Sensitivity:         sens(),
		},
	}
}

// MergeThresholds 合并阈值配置：site 覆盖 global，按传感器类型逐字段合并
// site 未设置的字段保留 global 的值，不做整体替换
func MergeThresholds(global, site ThresholdConfig) ThresholdConfig {
	merged := make(ThresholdConfig, len(global))
	for t, g := range global {
		merged[t] = mergeSensorThresholds(g, site[t])
	}
	// site 中有而 global 中没有的类型直接采用
	for t, s := range site {
		if _, ok := merged[t]; !ok && s != nil {
			merged[t] = mergeSensorThresholds(nil, s)
		}
	}
	return merged
}

func mergeSensorThresholds(global, site *SensorThresholds) *SensorThresholds {
	if global == nil && site == nil {
		return nil
	}

	out := &SensorThresholds{}
	if global != nil {
		*out = *global
	}
	if site == nil {
		return out
	}

	if site.Normal != nil {
		out.Normal = site.Normal
	}
	if site.Warning != nil {
		out.Warning = site.Warning
	}
	if site.Alert != nil {
		out.Alert = site.Alert
	}
	if site.Critical != nil {
		out.Critical = site.Critical
	}
	if site.OfflineTimeout != 0 {
		out.OfflineTimeout = site.OfflineTimeout
	}
	if site.DuplicatePrevention != nil {
		out.DuplicatePrevention = site.DuplicatePrevention
	}
	if site.Sensitivity != nil {
		out.Sensitivity = site.Sensitivity
	}
	return out
}

// Validate 校验阈值配置，返回人类可读的错误消息列表
// 消息列表非空时不得保存该配置
func (c ThresholdConfig) Validate() []string {
	var problems []string

	for _, t := range AllSensorTypes {
		th, ok := c[t]
		if !ok || th == nil {
			continue
		}

		check := func(name string, r *Range) {
			if r != nil && r.Min >= r.Max {
				problems = append(problems,
					fmt.Sprintf("%s: %s range min (%.1f) must be less than max (%.1f)", t, name, r.Min, r.Max))
			}
		}
		check("normal", th.Normal)
		check("warning", th.Warning)
		check("alert", th.Alert)
		check("critical", th.Critical)

		// 距离类传感器（越大越危险）：warning 与 alert 波段不得重叠
		if t == SensorUltrasonic && th.Warning != nil && th.Alert != nil {
			if th.Warning.Max >= th.Alert.Min {
				problems = append(problems,
					fmt.Sprintf("%s: warning max (%.1f) must be below alert min (%.1f)", t, th.Warning.Max, th.Alert.Min))
			}
		}

		if th.OfflineTimeout < 0 {
			problems = append(problems,
				fmt.Sprintf("%s: offline_timeout must not be negative", t))
		}
	}

	return problems
}
