// Package source reads inventory tables from spreadsheet files and Google
// Sheets and decodes them into device snapshots.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrInvalidTable      = errors.New("invalid table")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is a spreadsheet file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Table is the raw cell text of a sheet: a header row and the data rows
// below it.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read reads a table in the given format.
func Read(r io.Reader, f Format) (*Table, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// ReadCSV reads a comma separated table. Rows may have fewer cells than the
// header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return newTable(records)
}

// ReadXLSX reads the first worksheet of an Excel workbook. Cells are read raw
// so date cells arrive as Excel serial numbers rather than in the workbook's
// display format.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidTable)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrInvalidTable, sheets[0], err)
	}
	return newTable(rows)
}

// newTable splits records into header and rows, skipping blank lines above
// the header.
func newTable(records [][]string) (*Table, error) {
	for len(records) > 0 && blankRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidTable)
	}

	header := make([]string, len(records[0]))
	copy(header, records[0])
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	return &Table{Header: header, Rows: records[1:]}, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
