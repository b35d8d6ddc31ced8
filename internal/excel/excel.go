// Package excel inspects downloaded workbooks: sheet dimensions, header
// detection, and defined tables. It never modifies workbook content.
package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Header detection parameters. The header row is the first of the top
// headerScanRows rows with at least headerMinCells non-empty cells among
// the first headerScanCols columns.
const (
	headerScanRows   = 3
	headerScanCols   = 10
	headerMinCells   = 2
	maxSampleHeaders = 5
)

// SheetInfo describes one worksheet.
type SheetInfo struct {
	Name string
	Rows int
	Cols int

	// HeaderRow is the 1-based detected header row, 0 when none was found.
	HeaderRow int

	// Headers holds up to maxSampleHeaders values from the header row.
	Headers []string
}

// TableInfo describes a defined table within a worksheet.
type TableInfo struct {
	Name  string
	Sheet string
	Range string
	Rows  int
	Cols  int
}

// WorkbookInfo is the full inspection result for one workbook file.
type WorkbookInfo struct {
	Path   string
	Sheets []SheetInfo
	Tables []TableInfo
}

// Inspect opens a workbook file and reports its sheets and tables.
func Inspect(path string) (*WorkbookInfo, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("excel: opening %s: %w", path, err)
	}
	defer f.Close()

	info := &WorkbookInfo{Path: path}

	for _, sheet := range f.GetSheetList() {
		si, err := inspectSheet(f, sheet)
		if err != nil {
			return nil, err
		}

		info.Sheets = append(info.Sheets, si)

		tables, err := sheetTables(f, sheet)
		if err != nil {
			return nil, err
		}

		info.Tables = append(info.Tables, tables...)
	}

	return info, nil
}

func inspectSheet(f *excelize.File, sheet string) (SheetInfo, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return SheetInfo{}, fmt.Errorf("excel: reading sheet %s: %w", sheet, err)
	}

	si := SheetInfo{
		Name: sheet,
		Rows: len(rows),
	}

	for _, row := range rows {
		if len(row) > si.Cols {
			si.Cols = len(row)
		}
	}

	si.HeaderRow, si.Headers = detectHeader(rows)

	return si, nil
}

// detectHeader scans the top rows for the first plausible header row and
// returns its 1-based index with a capped sample of its values.
func detectHeader(rows [][]string) (int, []string) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := range limit {
		row := rows[i]

		cols := headerScanCols
		if len(row) < cols {
			cols = len(row)
		}

		var filled []string

		for _, cell := range row[:cols] {
			if strings.TrimSpace(cell) != "" {
				filled = append(filled, cell)
			}
		}

		if len(filled) >= headerMinCells {
			if len(filled) > maxSampleHeaders {
				filled = filled[:maxSampleHeaders]
			}

			return i + 1, filled
		}
	}

	return 0, nil
}

func sheetTables(f *excelize.File, sheet string) ([]TableInfo, error) {
	tables, err := f.GetTables(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: reading tables of sheet %s: %w", sheet, err)
	}

	infos := make([]TableInfo, 0, len(tables))

	for _, t := range tables {
		ti := TableInfo{
			Name:  t.Name,
			Sheet: sheet,
			Range: t.Range,
		}

		ti.Rows, ti.Cols = rangeSize(t.Range)

		infos = append(infos, ti)
	}

	return infos, nil
}

// rangeSize computes the row and column span of an A1-style range like
// "A1:D10". Malformed ranges yield zero sizes rather than an error, since
// the range string is informational.
func rangeSize(ref string) (rows, cols int) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 {
		return 0, 0
	}

	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0
	}

	c2, r2, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return 0, 0
	}

	return r2 - r1 + 1, c2 - c1 + 1
}
