// Package export writes record collections to single-sheet Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook is a rendered export ready to be sent to a client.
type Workbook struct {
	Filename string
	Data     []byte
}

// Filename returns "<prefix>_YYYYMMDD.xlsx" for the given day.
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("20060102"))
}

// Excel writes headers and then one row per record, as produced by row.
func Excel[T any](records []T, headers []string, row func(T) []any, sheet, prefix string, now time.Time) (*Workbook, error) {
	const op = "export.Excel"

	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, rec := range records {
		cells := row(rec)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Workbook{Filename: Filename(prefix, now), Data: buf.Bytes()}, nil
}

// Write sends the workbook as a file download.
func (w *Workbook) Write(rw http.ResponseWriter) error {
	rw.Header().Set("Content-Type", ContentTypeXLSX)
	rw.Header().Set("Content-Disposition", "attachment; filename="+w.Filename)
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write(w.Data)
	return err
}
