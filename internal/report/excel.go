package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// AlertReportHeader 报警历史导出表头
var AlertReportHeader = []string{
	"Alert ID",
	"Site",
	"Sensor",
	"Type",
	"Priority",
	"Message",
	"Value",
	"Triggered At",
	"Acknowledged",
	"Acknowledged At",
}

// GenerateAlertReport 生成报警历史 Excel 文件
func GenerateAlertReport(alerts []models.Alert) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：WriteTo 之前不能 Close

	sheetName := "Alerts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range AlertReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(AlertReportHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastCol, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, alert := range alerts {
		row := i + 2
		values := []interface{}{
			alert.ID,
			alert.SiteID,
			alert.SensorKey,
			string(alert.Type),
			alert.Type.Priority(),
			alert.Message,
			alertValue(&alert),
			formatMillis(alert.Timestamp),
			alert.Acknowledged,
			formatMillis(alert.AcknowledgedAt),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func alertValue(alert *models.Alert) interface{} {
	if alert.Data == nil {
		return ""
	}
	if v, ok := alert.Data["value"]; ok {
		return v
	}
	return ""
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
