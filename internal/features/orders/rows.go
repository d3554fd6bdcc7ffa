// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package orders implements the order_extractor screen and the order cache
behind the dashboard metrics.

Orders are fetched from WooCommerce for a date range of at most 31 days,
shaped into display rows, and exported as a two-sheet workbook (Orders and
Item Summary). The same fetch feeds commerce.ordercache, which the
dashboard reads for per-status counts.
*/
package orders

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
)

// NotAvailable fills display cells the store left empty.
const NotAvailable = "N/A"

// Row is one order as shown in the extractor table.
type Row struct {
	SerialNo        int     `json:"s_no"`
	OrderID         int64   `json:"order_id"`
	Date            string  `json:"date"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	OrderValue      float64 `json:"order_value"`
	LineCount       int     `json:"no_of_items"`
	TotalItems      int     `json:"total_items"`
	Mobile          string  `json:"mobile"`
	ShippingAddress string  `json:"shipping_address"`
	ItemsOrdered    string  `json:"items_ordered"`
}

// SortByID orders by ascending order id in place.
func SortByID(orders []woo.Order) {
	slices.SortFunc(orders, func(a, b woo.Order) int { return cmp.Compare(a.ID, b.ID) })
}

/*
BuildRows shapes orders into numbered display rows, ascending by order id.

Description: The date keeps only the calendar day. Empty names, addresses and
item lists become "N/A". The input slice is sorted in place.
*/
func BuildRows(orders []woo.Order) []Row {
	SortByID(orders)

	rows := make([]Row, 0, len(orders))
	for i, order := range orders {
		rows = append(rows, Row{
			SerialNo:        i + 1,
			OrderID:         order.ID,
			Date:            orderDate(order),
			Name:            orDefault(order.Billing.FullName()),
			Status:          order.Status,
			OrderValue:      order.TotalValue(),
			LineCount:       len(order.LineItems),
			TotalItems:      order.ItemCount(),
			Mobile:          order.Billing.Phone,
			ShippingAddress: orDefault(shippingAddress(order.Shipping)),
			ItemsOrdered:    orDefault(itemsOrdered(order.LineItems)),
		})
	}
	return rows
}

func orderDate(order woo.Order) string {
	if created, ok := order.Created(); ok {
		return created.Format("2006-01-02")
	}
	if len(order.DateCreated) >= 10 {
		return order.DateCreated[:10]
	}
	return NotAvailable
}

func shippingAddress(address woo.Address) string {
	parts := []string{address.Address1, address.Address2, address.City, address.State, address.Postcode, address.Country}
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}

func itemsOrdered(items []woo.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x %d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

func orDefault(value string) string {
	if value == "" {
		return NotAvailable
	}
	return value
}

// SummaryLine is one row of the Item Summary sheet.
type SummaryLine struct {
	ItemID      int64  `json:"item_id"`
	VariationID int64  `json:"variation_id"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
}

// Summarize sums line-item quantities per (item, variation, name), sorted by those keys.
func Summarize(orders []woo.Order) []SummaryLine {
	type key struct {
		item, variation int64
		name            string
	}
	totals := make(map[key]int)
	for _, order := range orders {
		for _, item := range order.LineItems {
			totals[key{item.ProductID, item.VariationID, item.Name}] += item.Quantity
		}
	}

	lines := make([]SummaryLine, 0, len(totals))
	for k, quantity := range totals {
		lines = append(lines, SummaryLine{ItemID: k.item, VariationID: k.variation, ItemName: k.name, Quantity: quantity})
	}
	slices.SortFunc(lines, func(a, b SummaryLine) int {
		return cmp.Or(
			cmp.Compare(a.ItemID, b.ItemID),
			cmp.Compare(a.VariationID, b.VariationID),
			cmp.Compare(a.ItemName, b.ItemName),
		)
	})
	return lines
}
