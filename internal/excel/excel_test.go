package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, build func(f *excelize.File)) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	build(f)

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.SaveAs(path))

	return path
}

func TestInspectSheetsAndHeaders(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		// Sheet1: headers directly in row 1.
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Region", "Quarter", "Revenue"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"EMEA", "Q1", 1000}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"APAC", "Q1", 2000}))

		// Summary: title row first, headers in row 2.
		_, err := f.NewSheet("Summary")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Summary", "A1", "Quarterly Summary"))
		require.NoError(t, f.SetSheetRow("Summary", "A2", &[]any{"Metric", "Value"}))
		require.NoError(t, f.SetSheetRow("Summary", "A3", &[]any{"Total", 3000}))
	})

	info, err := Inspect(path)
	require.NoError(t, err)

	require.Len(t, info.Sheets, 2)

	sheet1 := info.Sheets[0]
	assert.Equal(t, "Sheet1", sheet1.Name)
	assert.Equal(t, 3, sheet1.Rows)
	assert.Equal(t, 3, sheet1.Cols)
	assert.Equal(t, 1, sheet1.HeaderRow)
	assert.Equal(t, []string{"Region", "Quarter", "Revenue"}, sheet1.Headers)

	summary := info.Sheets[1]
	assert.Equal(t, "Summary", summary.Name)
	assert.Equal(t, 2, summary.HeaderRow)
	assert.Equal(t, []string{"Metric", "Value"}, summary.Headers)
}

func TestInspectEmptySheetNoHeader(t *testing.T) {
	path := writeWorkbook(t, func(_ *excelize.File) {})

	info, err := Inspect(path)
	require.NoError(t, err)

	require.Len(t, info.Sheets, 1)
	assert.Equal(t, 0, info.Sheets[0].HeaderRow)
	assert.Empty(t, info.Sheets[0].Headers)
	assert.Empty(t, info.Tables)
}

func TestInspectCapsSampleHeaders(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		row := []any{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8"}
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &row))
	})

	info, err := Inspect(path)
	require.NoError(t, err)

	require.Len(t, info.Sheets, 1)
	assert.Equal(t, 1, info.Sheets[0].HeaderRow)
	assert.Len(t, info.Sheets[0].Headers, maxSampleHeaders)
	assert.Equal(t, []string{"C1", "C2", "C3", "C4", "C5"}, info.Sheets[0].Headers)
}

func TestInspectTables(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Amount"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Widgets", 10}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Gadgets", 20}))
		require.NoError(t, f.AddTable("Sheet1", &excelize.Table{
			Range: "A1:B3",
			Name:  "SalesTable",
		}))
	})

	info, err := Inspect(path)
	require.NoError(t, err)

	require.Len(t, info.Tables, 1)

	table := info.Tables[0]
	assert.Equal(t, "SalesTable", table.Name)
	assert.Equal(t, "Sheet1", table.Sheet)
	assert.Equal(t, "A1:B3", table.Range)
	assert.Equal(t, 3, table.Rows)
	assert.Equal(t, 2, table.Cols)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestDetectHeaderSkipsSparseRows(t *testing.T) {
	rows := [][]string{
		{"Title"},
		{"", ""},
		{"A", "B", "C"},
	}

	row, headers := detectHeader(rows)
	assert.Equal(t, 3, row)
	assert.Equal(t, []string{"A", "B", "C"}, headers)
}

func TestRangeSize(t *testing.T) {
	rows, cols := rangeSize("A1:D10")
	assert.Equal(t, 10, rows)
	assert.Equal(t, 4, cols)

	rows, cols = rangeSize("bogus")
	assert.Zero(t, rows)
	assert.Zero(t, cols)
}
