package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes the header and rows using the dataset's delimiter.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if d.Delimiter != 0 {
		cw.Comma = d.Delimiter
	}
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range d.Rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the dataset as a single-sheet workbook.
func WriteXLSX(w io.Writer, d *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(d.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E7FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	header := make([]interface{}, len(d.Columns))
	for i, c := range d.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(d.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(d.Columns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	for i, r := range d.Rows {
		cells := make([]interface{}, len(r))
		for j, v := range r {
			if n, ok := ParseNumber(v); ok && pureNumber.MatchString(strings.TrimSpace(v)) {
				cells[j] = n
			} else {
				cells[j] = v
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func sheetName(name string) string {
	n := strings.TrimSuffix(name, ".csv")
	n = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, n)
	if n == "" {
		n = "Data"
	}
	if len([]rune(n)) > 31 {
		n = string([]rune(n)[:31])
	}
	return n
}

// SampleText renders the header and the first n rows as CSV. It is the data
// sample embedded in AI prompts.
func SampleText(d *Dataset, n int) string {
	var b strings.Builder
	cw := csv.NewWriter(&b)
	_ = cw.Write(d.Columns)
	for _, r := range d.Head(n) {
		_ = cw.Write(r)
	}
	cw.Flush()
	return strings.TrimRight(b.String(), "\n")
}
