package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".xlsx") || strings.HasSuffix(n, ".xlsm")
}

func (xlsxReader) Read(r io.Reader, opt Options) (*Raw, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	raw := &Raw{Header: rows[0], Delimiter: ','}
	for _, rec := range rows[1:] {
		if opt.MaxRows > 0 && len(raw.Records) >= opt.MaxRows {
			break
		}
		raw.Records = append(raw.Records, rec)
	}
	return raw, nil
}
