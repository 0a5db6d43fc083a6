package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAlertID(t *testing.T) {
	id1 := NewAlertID("site_001", "ultrasonic_1", AlertLevelCritical)
	id2 := NewAlertID("site_001", "ultrasonic_1", AlertLevelCritical)

	assert.True(t, strings.HasPrefix(id1, "site_001_ultrasonic_1_critical_"))
	// 随机后缀保证不复用
	assert.NotEqual(t, id1, id2)
}

func TestAlertPriority(t *testing.T) {
	// critical > offline > alert > warning/硬件 > maintenance
	assert.Less(t, AlertLevelCritical.Priority(), AlertLevelOffline.Priority())
	assert.Less(t, AlertLevelOffline.Priority(), AlertLevelAlert.Priority())
	assert.Less(t, AlertLevelAlert.Priority(), AlertLevelWarning.Priority())
	assert.Equal(t, AlertLevelWarning.Priority(), AlertBatteryLow.Priority())
	assert.Equal(t, AlertLevelWarning.Priority(), AlertSignalWeak.Priority())
	assert.Less(t, AlertLevelWarning.Priority(), AlertMaintenance.Priority())
}

func TestStripNilData(t *testing.T) {
	a := &Alert{
		Data: map[string]any{
			"value": 42.0,
			"empty": nil,
		},
	}
	a.StripNilData()
	assert.Equal(t, map[string]any{"value": 42.0}, a.Data)

	// 全 nil 时整个 map 置空
	a = &Alert{Data: map[string]any{"only": nil}}
	a.StripNilData()
	assert.Nil(t, a.Data)
}
