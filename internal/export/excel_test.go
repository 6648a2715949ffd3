package export

import (
	"bytes"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type item struct {
	id   int
	name string
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExcelOneRowPerRecord(t *testing.T) {
	items := []item{{1, "alpha"}, {2, "beta"}, {3, "gamma"}}
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	wb, err := Excel(items, []string{"ID", "Name"}, func(it item) []any {
		return []any{strconv.Itoa(it.id), it.name}
	}, "Items", "items", now)
	require.NoError(t, err)

	assert.Equal(t, "items_20240309.xlsx", wb.Filename)

	rows := readRows(t, wb.Data, "Items")
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"ID", "Name"}, rows[0])
	assert.Equal(t, []string{"1", "alpha"}, rows[1])
	assert.Equal(t, []string{"3", "gamma"}, rows[3])
}

func TestExcelEmptyCollection(t *testing.T) {
	wb, err := Excel([]item{}, []string{"ID"}, func(it item) []any {
		return []any{it.id}
	}, "Empty", "empty", time.Now())
	require.NoError(t, err)

	rows := readRows(t, wb.Data, "Empty")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"ID"}, rows[0])
}

func TestWorkbookWrite(t *testing.T) {
	wb := &Workbook{Filename: "bug_reports_20240101.xlsx", Data: []byte("xlsx")}
	rec := httptest.NewRecorder()

	require.NoError(t, wb.Write(rec))
	assert.Equal(t, ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=bug_reports_20240101.xlsx", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", rec.Body.String())
}
