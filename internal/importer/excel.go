package importer

import (
	"fmt"
	"io"
	"strconv"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/xuri/excelize/v2"
)

// ParseExcel reads the first sheet (or Options.Sheet) of an .xlsx workbook. Cells are read
// raw so date cells arrive as Excel serial numbers when they are not text.
func ParseExcel(r io.Reader, opts Options) (*Parsed, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, unreadable("excel workbook", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewImportParseError("excel workbook has no sheets", errors.ErrCodeImportUnreadable)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, unreadable(fmt.Sprintf("sheet %q", sheet), err)
	}

	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, errors.NewImportParseError(fmt.Sprintf("sheet %q has no header row", sheet), errors.ErrCodeImportColumns)
	}

	layouts := opts.dateFormats()
	return table(rows[start], rows[start+1:], start+1, opts, func(raw string) (time.Time, error) {
		if t, err := parseDate(raw, layouts); err == nil {
			return t, nil
		}
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return parseDate(raw, layouts)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", raw, err)
		}
		// Serial dates carry no zone; keep the wall clock in local time.
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
	})
}
