// Package export renders report tables into downloadable files.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lavega/order-pipeline/app/reports"
)

const (
	titleRow  = 1
	headerRow = 3
	firstData = 4

	maxSheetName = 31
)

// XLSXSink writes each table to its own worksheet: a title, a header row and the data.
type XLSXSink struct {
	// Widths overrides column widths by column name.
	Widths map[string]float64
}

func NewXLSXSink() *XLSXSink {
	return &XLSXSink{
		Widths: map[string]float64{
			reports.ColProduct:  50,
			reports.ColCategory: 20,
			reports.ColAddress:  40,
			reports.ColCustomer: 30,
		},
	}
}

func (s *XLSXSink) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (s *XLSXSink) Extension() string {
	return ".xlsx"
}

func (s *XLSXSink) Write(w io.Writer, tables ...reports.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, t := range tables {
		sheet := sheetName(t.Name, i)
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			_, err = f.NewSheet(sheet)
		}
		if err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := s.writeTable(f, sheet, t, styles); err != nil {
			return fmt.Errorf("write sheet %q: %w", sheet, err)
		}
	}

	return f.Write(w)
}

type sheetStyles struct {
	title  int
	header int
	cell   int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4CAF50"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	}); err != nil {
		return st, err
	}
	if st.cell, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return st, err
	}
	return st, nil
}

func (s *XLSXSink) writeTable(f *excelize.File, sheet string, t reports.Table, st sheetStyles) error {
	if len(t.Columns) == 0 {
		return f.SetCellValue(sheet, "A1", t.Title)
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return err
	}
	if len(t.Columns) > 1 {
		if err := f.MergeCell(sheet, "A1", fmt.Sprintf("%s%d", lastCol, titleRow)); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}

	for i, column := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, column); err != nil {
			return err
		}
		if width, ok := s.Widths[column]; ok {
			name, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, name, name, width); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(sheet, "A3", fmt.Sprintf("%s%d", lastCol, headerRow), st.header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		rowNum := firstData + r
		for c, column := range t.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, row.Value(column)); err != nil {
				return err
			}
		}
	}
	if len(t.Rows) > 0 {
		last := fmt.Sprintf("%s%d", lastCol, firstData+len(t.Rows)-1)
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", firstData), last, st.cell); err != nil {
			return err
		}
	}
	return nil
}

func sheetName(name string, index int) string {
	if name == "" {
		name = fmt.Sprintf("Hoja %d", index+1)
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}
