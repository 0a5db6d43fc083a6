package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

func TestGenerateAlertReport(t *testing.T) {
	alerts := []models.Alert{
		{
			ID:        "site_001_ultrasonic_1_critical_abc12345",
			Type:      models.AlertLevelCritical,
			SiteID:    "site_001",
			SensorKey: "ultrasonic_1",
			Message:   "Ultrasonic reads 400.0cm",
			Timestamp: 1_700_000_000_000,
			Data:      map[string]any{"value": 400.0},
		},
		{
			ID:             "site_002_temperature_1_warning_def67890",
			Type:           models.AlertLevelWarning,
			SiteID:         "site_002",
			SensorKey:      "temperature_1",
			Message:        "Temperature reads 32.0°C",
			Timestamp:      1_700_000_060_000,
			Acknowledged:   true,
			AcknowledgedAt: 1_700_000_120_000,
		},
	}

	data, err := GenerateAlertReport(alerts)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// 重新打开校验内容
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Alerts")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, AlertReportHeader, rows[0][:len(AlertReportHeader)])

	assert.Equal(t, "site_001_ultrasonic_1_critical_abc12345", rows[1][0])
	assert.Equal(t, "site_001", rows[1][1])
	assert.Equal(t, "critical", rows[1][3])
	assert.Equal(t, "400", rows[1][6])
	assert.Equal(t, "2023-11-14 22:13:20", rows[1][7])

	assert.Equal(t, "temperature_1", rows[2][2])
	assert.Equal(t, "TRUE", rows[2][8])
}

func TestGenerateAlertReportEmpty(t *testing.T) {
	data, err := GenerateAlertReport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Alerts")
	require.NoError(t, err)
	// 只有表头
	require.Len(t, rows, 1)
}
