package models

// SiteStatus 站点状态
type SiteStatus string

const (
	SiteActive      SiteStatus = "active"
	SiteInactive    SiteStatus = "inactive"
	SiteMaintenance SiteStatus = "maintenance"
)

// Site 监测站点（工地）
type Site struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      SiteStatus `json:"status,omitempty"`

	// SensorConfig 传感器类型 → 实例数量（推荐格式）
	SensorConfig map[SensorType]int `json:"sensorConfig,omitempty"`

	// 旧格式：类型列表 + 每类数量
	SensorTypes []SensorType `json:"sensorTypes,omitempty"`
	SensorCount int          `json:"sensorCount,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// EffectiveSensorConfig 解析传感器配置（兼容旧格式）
// sensorConfig 优先；旧格式按 sensorTypes × sensorCount 展开；数量缺省为 1
func (s *Site) EffectiveSensorConfig() map[SensorType]int {
	if len(s.SensorConfig) > 0 {
		out := make(map[SensorType]int, len(s.SensorConfig))
		for t, n := range s.SensorConfig {
			if !t.Valid() || n < 1 {
				continue
			}
			out[t] = n
		}
		return out
	}

	out := make(map[SensorType]int, len(s.SensorTypes))
	count := s.SensorCount
	if count < 1 {
		count = 1
	}
	for _, t := range s.SensorTypes {
		if !t.Valid() {
			continue
		}
		out[t] = count
	}
	return out
}
