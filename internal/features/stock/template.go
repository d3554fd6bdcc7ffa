// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package stock

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/document"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
)

// Template sheet names.
const (
	TemplateSheet     = "Products"
	InstructionsSheet = "Instructions"
)

// TemplateHeader is the header row of the Products sheet.
var TemplateHeader = []string{
	"product_id", "variation_id", "product_name", "sku",
	"current_stock", "current_regular_price", "current_sale_price",
	"new_stock", "new_regular_price", "new_sale_price",
}

var instructions = []string{
	`1. Fill in the "new_stock", "new_regular_price" or "new_sale_price" columns`,
	"2. Leave a cell blank to keep that field",
	"3. Do NOT modify the product_id, variation_id, product_name or sku columns",
	"4. Stock must be >= 0",
	"5. Sale price cannot be higher than regular price",
	"6. Save and upload the file back to the module",
}

var templateColumns = map[string][]string{
	"product_id":        {"product_id"},
	"variation_id":      {"variation_id"},
	"new_stock":         {"new_stock"},
	"new_regular_price": {"new_regular_price"},
	"new_sale_price":    {"new_sale_price"},
}

// Template renders the updatable list as the bulk update workbook.
func (service *Service) Template(ctx context.Context) ([]byte, error) {
	lists, err := service.Lists(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(lists.Updatable))
	for _, item := range lists.Updatable {
		rows = append(rows, []any{
			item.ProductID, item.VariationID, item.Name, item.SKU,
			item.Stock(), item.Regular(), item.Sale(),
			"", "", "",
		})
	}

	notes := make([][]any, 0, len(instructions))
	for _, line := range instructions {
		notes = append(notes, []any{line})
	}

	return document.Workbook(
		document.Sheet{Name: TemplateSheet, Header: TemplateHeader, Rows: rows, ColumnWidth: 18},
		document.Sheet{Name: InstructionsSheet, Header: []string{"Instructions"}, Rows: notes, ColumnWidth: 80},
	)
}

/*
ParseTemplate reads changes back from a filled template.

Returns:
  - []Change: Rows with at least one new value
  - []string: Row errors ("Row n: ...", counted as in the sheet)
  - error: VALIDATION when the sheet or a column is missing
*/
func ParseTemplate(filename string, data []byte) ([]Change, []string, error) {
	table, err := document.ReadTable(filename, data, TemplateSheet)
	if err != nil {
		return nil, nil, err
	}
	columns, err := table.RequireColumns(templateColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		changes []Change
		errs    []string
	)
	for i, cells := range table.Rows {
		line := i + 2
		rowErr := func(field string) {
			errs = append(errs, fmt.Sprintf("Row %d: %s is not a number", line, field))
		}

		productCell := document.Cell(cells, columns["product_id"])
		if productCell == "" {
			continue
		}
		productID, ok := wholeNumber(productCell)
		if !ok {
			rowErr("product_id")
			continue
		}
		variationID := int64(0)
		if cell := document.Cell(cells, columns["variation_id"]); cell != "" {
			if variationID, ok = wholeNumber(cell); !ok {
				rowErr("variation_id")
				continue
			}
		}

		change := Change{ProductID: productID, VariationID: variationID}
		valid := true
		if cell := document.Cell(cells, columns["new_stock"]); cell != "" {
			value, ok := wholeNumber(cell)
			if !ok {
				rowErr("new_stock")
				valid = false
			}
			stock := int(value)
			change.Stock = &stock
		}
		for _, price := range []struct {
			field  string
			target **float64
		}{
			{"new_regular_price", &change.RegularPrice},
			{"new_sale_price", &change.SalePrice},
		} {
			cell := document.Cell(cells, columns[price.field])
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				rowErr(price.field)
				valid = false
				continue
			}
			*price.target = &value
		}

		if valid && (change.Stock != nil || change.RegularPrice != nil || change.SalePrice != nil) {
			changes = append(changes, change)
		}
	}
	return changes, errs, nil
}

// wholeNumber parses an integer cell, accepting spreadsheet floats such as "12.0".
func wholeNumber(cell string) (int64, bool) {
	if value, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return value, true
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil || value != float64(int64(value)) {
		return 0, false
	}
	return int64(value), true
}

// Upload applies a filled template.
func (service *Service) Upload(ctx context.Context, actor string, upload *requestutil.Upload) (*ApplyResult, error) {
	service.record(ctx, actor, activity.ActionFileUpload, "Uploaded stock template: "+upload.Filename,
		map[string]any{"filename": upload.Filename, "size_bytes": upload.Size}, true)

	if upload.Size > constants.MaxUploadSize {
		return nil, apperr.ValidationError(fmt.Sprintf("File too large (max %d MB)", constants.MaxUploadSize>>20))
	}

	changes, rowErrors, err := ParseTemplate(upload.Filename, upload.Data)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		if len(rowErrors) > 0 {
			return &ApplyResult{Errors: rowErrors}, nil
		}
		return nil, apperr.Unprocessable("No changes found in the file")
	}

	result, err := service.Apply(ctx, actor, changes, SourceExcel)
	if err != nil {
		return nil, err
	}
	result.Errors = append(rowErrors, result.Errors...)
	return result, nil
}
