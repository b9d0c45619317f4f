package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// IncidentImportHeader 导入模板表头（与表头识别的规范列名对齐）
var IncidentImportHeader = []string{
	"Priority",
	"Site",
	"No Case",
	"NCAL",
	"Status",
	"Level",
	"TS",
	"Start",
	"Start Escalation Vendor",
	"End",
	"Start Pause",
	"End Pause",
	"Start Pause 2",
	"End Pause 2",
	"Problem",
	"Penyebab",
	"Klasifikasi Gangguan",
}

// IncidentExportHeader 导出表头（含派生指标列）
var IncidentExportHeader = []string{
	"Priority",
	"Site",
	"No Case",
	"NCAL",
	"Status",
	"Level",
	"TS",
	"Start",
	"Start Escalation Vendor",
	"End",
	"Start Pause",
	"End Pause",
	"Start Pause 2",
	"End Pause 2",
	"Problem",
	"Penyebab",
	"Klasifikasi Gangguan",
	"Total Duration (min)",
	"Vendor Duration (min)",
	"Total Pause (min)",
	"Net Vendor Duration (min)",
	"Net Duration (min)",
}

// incidentExportKeys 导出列 → ToJSON 键
var incidentExportKeys = map[string]string{
	"Priority":                  "priority",
	"Site":                      "site",
	"No Case":                   "case_number",
	"NCAL":                      "severity",
	"Status":                    "status",
	"Level":                     "level",
	"TS":                        "vendor",
	"Start":                     "start_time",
	"Start Escalation Vendor":   "vendor_start_time",
	"End":                       "end_time",
	"Start Pause":               "pause1_start",
	"End Pause":                 "pause1_end",
	"Start Pause 2":             "pause2_start",
	"End Pause 2":               "pause2_end",
	"Problem":                   "problem",
	"Penyebab":                  "root_cause",
	"Klasifikasi Gangguan":      "classification",
	"Total Duration (min)":      "total_duration_min",
	"Vendor Duration (min)":     "vendor_duration_min",
	"Total Pause (min)":         "total_pause_min",
	"Net Vendor Duration (min)": "net_vendor_duration_min",
	"Net Duration (min)":        "net_duration_min",
}

// GenerateIncidentImportTemplate 生成导入模板 Excel 文件（只有表头）
func GenerateIncidentImportTemplate() ([]byte, error) {
	return generateIncidentExcel(IncidentImportHeader, nil)
}

// GenerateIncidentExport 生成工单导出 Excel 文件
func GenerateIncidentExport(data []map[string]any) ([]byte, error) {
	return generateIncidentExcel(IncidentExportHeader, data)
}

// generateIncidentExcel 生成工单 Excel 文件的通用函数
func generateIncidentExcel(headers []string, data []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	sheetName := "Incidents"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := 0; i < len(headers); i++ {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		// 时间列和文本长列放宽
		width := 14.0
		switch headers[i] {
		case "Problem", "Penyebab", "Klasifikasi Gangguan":
			width = 32
		case "Start", "End", "Start Escalation Vendor",
			"Start Pause", "End Pause", "Start Pause 2", "End Pause 2":
			width = 20
		case "Net Vendor Duration (min)", "Total Duration (min)",
			"Vendor Duration (min)", "Total Pause (min)", "Net Duration (min)":
			width = 22
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, item := range data {
		row := rowIdx + 2 // 第 1 行是表头
		for colIdx, header := range headers {
			value, ok := item[incidentExportKeys[header]]
			if !ok || value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
