// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package document reads uploaded spreadsheets and writes the workbooks and
zip bundles the feature modules hand back to the browser.

Uploads are either .xlsx (read with excelize) or .csv. Header cells are
matched case-insensitively after trimming so "Order #", "order #" and
" ORDER # " all address the same column.
*/
package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
)

// ErrUnsupportedFormat is returned for uploads that are neither xlsx nor csv.
var ErrUnsupportedFormat = apperr.ValidationError("Unsupported file type. Upload an .xlsx or .csv file.")

// Table is the first sheet of an upload with its header split off.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NormalizeHeader lowercases and trims a header cell.
func NormalizeHeader(cell string) string {
	return strings.ToLower(strings.TrimSpace(cell))
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, apperr.ValidationError("The file is empty")
	}

	table := &Table{Header: records[0], Rows: records[1:], index: make(map[string]int, len(records[0]))}
	for i, cell := range table.Header {
		name := NormalizeHeader(cell)
		if _, seen := table.index[name]; !seen && name != "" {
			table.index[name] = i
		}
	}
	return table, nil
}

// Column returns the position of the first header matching any alias, or -1.
func (t *Table) Column(aliases ...string) int {
	for _, alias := range aliases {
		if i, ok := t.index[NormalizeHeader(alias)]; ok {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at column i of row; missing cells are empty.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

/*
ReadTable parses an uploaded spreadsheet.

Parameters:
  - filename: string (the extension picks the parser)
  - data: []byte
  - sheet: string (xlsx only; empty means the first sheet)

Returns:
  - *Table: Header and data rows
  - error: VALIDATION_ERROR for unreadable or empty files
*/
func ReadTable(filename string, data []byte, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		records, err := reader.ReadAll()
		if err != nil {
			return nil, apperr.ValidationError("Could not read the CSV file").WithCause(err)
		}
		return newTable(records)

	case ".xlsx", ".xlsm":
		book, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, apperr.ValidationError("Could not read the Excel file").WithCause(err)
		}
		defer book.Close()

		if sheet == "" {
			sheets := book.GetSheetList()
			if len(sheets) == 0 {
				return nil, apperr.ValidationError("The workbook has no sheets")
			}
			sheet = sheets[0]
		}
		records, err := book.GetRows(sheet)
		if err != nil {
			return nil, apperr.ValidationError(fmt.Sprintf("The workbook has no %q sheet", sheet)).WithCause(err)
		}
		return newTable(records)
	}
	return nil, ErrUnsupportedFormat
}

// RequireColumns fails with one field error per missing header.
func (t *Table) RequireColumns(columns map[string][]string) (map[string]int, error) {
	found := make(map[string]int, len(columns))
	var missing []apperr.FieldError
	for name, aliases := range columns {
		i := t.Column(aliases...)
		if i < 0 {
			missing = append(missing, apperr.FieldError{Field: name, Message: "Missing required column: " + strings.Join(aliases, " / ")})
			continue
		}
		found[name] = i
	}
	if len(missing) > 0 {
		return nil, apperr.ValidationError("Missing required columns", missing...)
	}
	return found, nil
}
