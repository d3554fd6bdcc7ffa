// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a generated workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any

	// ColumnWidth applies to every column. Zero keeps the default.
	ColumnWidth float64
}

/*
Workbook renders sheets into an xlsx file.

Description: Header rows are bold. The first sheet replaces the default
"Sheet1" and is left active.
*/
func Workbook(sheets ...Sheet) ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	bold, err := book.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("document_style_failed: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := book.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, fmt.Errorf("document_sheet_failed: %w", err)
			}
		} else if _, err := book.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("document_sheet_failed: %w", err)
		}

		if err := writeSheet(book, sheet, bold); err != nil {
			return nil, fmt.Errorf("document_sheet_%s_failed: %w", sheet.Name, err)
		}
	}
	book.SetActiveSheet(0)

	buffer, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("document_workbook_failed: %w", err)
	}
	return buffer.Bytes(), nil
}

func writeSheet(book *excelize.File, sheet Sheet, headerStyle int) error {
	header := make([]any, len(sheet.Header))
	for i, cell := range sheet.Header {
		header[i] = cell
	}
	if err := book.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	if len(sheet.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(sheet.Header), 1)
		if err != nil {
			return err
		}
		if err := book.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
			return err
		}
		if sheet.ColumnWidth > 0 {
			lastColumn, err := excelize.ColumnNumberToName(len(sheet.Header))
			if err != nil {
				return err
			}
			if err := book.SetColWidth(sheet.Name, "A", lastColumn, sheet.ColumnWidth); err != nil {
				return err
			}
		}
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := book.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
