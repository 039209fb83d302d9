// Package report exports the sensor history table as a spreadsheet
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/history"
)

// SheetName is the name of the exported worksheet
const SheetName = "Sensor History"

// ContentType is the MIME type of the exported workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var levelFills = map[entities.SeverityLevel]string{
	entities.Excellent: "#C6EFCE",
	entities.Good:      "#DDEBF7",
	entities.Warning:   "#FFEB9C",
	entities.Danger:    "#FFC7CE",
}

var columnWidths = []float64{20, 18, 12, 12, 14, 14}

// WriteReadingsWorkbook renders table rows into an xlsx workbook
func WriteReadingsWorkbook(rows []history.Row) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	levelStyles := make(map[entities.SeverityLevel]int, len(levelFills))
	for level, color := range levelFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			NumFmt: 2, // 0.00
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create %s style: %w", level, err)
		}
		levelStyles[level] = style
	}

	for i, column := range history.Columns {
		if err := setCell(f, i+1, 1, column.Label, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(columnWidths) {
			if err := f.SetColWidth(SheetName, name, name, columnWidths[i]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		line := i + 2
		if err := setCell(f, 1, line, row.Date+" "+row.Time, 0); err != nil {
			f.Close()
			return nil, err
		}
		for j, c := range row.Cells() {
			if err := setCell(f, j+2, line, c.Value, levelStyles[c.Level]); err != nil {
				f.Close()
				return nil, err
			}
		}
		if err := setCell(f, len(history.Columns), line, row.Status.Label, levelStyles[row.Status.Level]); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
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

func setCell(f *excelize.File, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", cell, err)
		}
	}
	return nil
}
