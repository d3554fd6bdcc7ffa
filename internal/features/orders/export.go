// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders

import (
	"fmt"
	"time"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/document"
)

// OrdersHeader and SummaryHeader are the column sets of the export.
var (
	OrdersHeader = []string{
		"S.No", "order #", "name", "Items Ordered", "Mobile Number",
		"Shipping Address", "Order Total", "Order Status", "Total Items",
	}
	SummaryHeader = []string{"Item ID", "Variation ID", "Item Name", "Quantity"}
)

// ExportFilename is orders_YYYYMMDD_YYYYMMDD.xlsx for the range.
func ExportFilename(start, end time.Time) string {
	return fmt.Sprintf("orders_%s_%s.xlsx", start.Format("20060102"), end.Format("20060102"))
}

// Workbook renders the Orders and Item Summary sheets.
func Workbook(orders []woo.Order) ([]byte, error) {
	rows := BuildRows(orders)

	orderRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		orderRows = append(orderRows, []any{
			row.SerialNo, row.OrderID, row.Name, row.ItemsOrdered, row.Mobile,
			row.ShippingAddress, row.OrderValue, row.Status, row.TotalItems,
		})
	}

	summary := Summarize(orders)
	summaryRows := make([][]any, 0, len(summary))
	for _, line := range summary {
		summaryRows = append(summaryRows, []any{line.ItemID, line.VariationID, line.ItemName, line.Quantity})
	}

	return document.Workbook(
		document.Sheet{Name: "Orders", Header: OrdersHeader, Rows: orderRows, ColumnWidth: 30},
		document.Sheet{Name: "Item Summary", Header: SummaryHeader, Rows: summaryRows, ColumnWidth: 25},
	)
}
