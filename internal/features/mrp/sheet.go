// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mrp

import (
	"math"
	"strconv"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/document"
)

// SheetName is the worksheet read from xlsx uploads.
const SheetName = "Item Summary"

// Standard column names and the headers accepted for each.
const (
	ColumnItemID      = "item_id"
	ColumnVariationID = "variation_id"
	ColumnQuantity    = "quantity"
)

var columnAliases = map[string][]string{
	ColumnItemID:      {"item id", "itemid", "item", "product_id", "product id"},
	ColumnVariationID: {"variation id", "variationid", "variation", "var_id", "var id"},
	ColumnQuantity:    {"quantity", "qty", "count", "copies", "qnty"},
}

// Row is one cleaned line of the quantity sheet.
type Row struct {
	ItemID      int64 `json:"item_id"`
	VariationID int64 `json:"variation_id"`
	Quantity    int   `json:"quantity"`
}

// FileID is the library id of the row: the variation when set, else the item.
func (r Row) FileID() int64 {
	if r.VariationID != 0 {
		return r.VariationID
	}
	return r.ItemID
}

// number parses an integer cell, accepting spreadsheet floats such as "7413.0".
func number(cell string) (int64, bool) {
	if value, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return value, true
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return int64(value), true
}

/*
ReadSheet parses the quantity sheet of an upload.

Description: xlsx uploads are read from the [SheetName] sheet, csv uploads
as they are. An empty variation id becomes 0. Rows with a non-numeric
value or a quantity of zero or less are dropped.
*/
func ReadSheet(filename string, data []byte) ([]Row, error) {
	table, err := document.ReadTable(filename, data, SheetName)
	if err != nil {
		return nil, err
	}

	columns, err := table.RequireColumns(columnAliases)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(table.Rows))
	for _, cells := range table.Rows {
		itemCell := document.Cell(cells, columns[ColumnItemID])
		quantityCell := document.Cell(cells, columns[ColumnQuantity])
		variationCell := document.Cell(cells, columns[ColumnVariationID])
		if itemCell == "" && quantityCell == "" {
			continue
		}
		if variationCell == "" {
			variationCell = "0"
		}

		item, okItem := number(itemCell)
		variation, okVariation := number(variationCell)
		quantity, okQuantity := number(quantityCell)
		if !okItem || !okVariation || !okQuantity || quantity <= 0 {
			continue
		}
		rows = append(rows, Row{ItemID: item, VariationID: variation, Quantity: int(quantity)})
	}

	if len(rows) == 0 {
		return nil, apperr.Unprocessable("No valid data rows found after cleaning")
	}
	return rows, nil
}
