// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package zoho

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/document"
	"github.com/taibuivan/opsdash/pkg/csvsafe"
)

// StatusCompleted is the only order status that is invoiced.
const StatusCompleted = "completed"

// Fixed Zoho import values.
const (
	ItemTypeGoods        = "goods"
	DiscountType         = "entity_level"
	ExemptionReason      = "ITEM EXEMPT FROM GST"
	SupplyTypeExempted   = "Exempted"
	GSTTreatmentConsumer = "consumer"
)

const invoiceDateLayout = "2006-01-02 15:04:05"

// CSVHeader is the Zoho Books invoice import header.
var CSVHeader = []string{
	"Invoice Number", "PurchaseOrder", "Invoice Date", "Invoice Status",
	"Customer Name", "Place of Supply", "Currency Code", "Item Name",
	"HSN/SAC", "Item Type", "Quantity", "Usage unit", "Item Price",
	"Is Inclusive Tax", "Item Tax %", "Discount Type", "Is Discount Before Tax",
	"Entity Discount Amount", "Shipping Charge", "Item Tax Exemption Reason",
	"Supply Type", "GST Treatment",
}

// InvoiceNumber formats the n-th number of prefix, zero padded to five digits.
func InvoiceNumber(prefix string, n int) string {
	return fmt.Sprintf("%s%05d", prefix, n)
}

// Line is one invoice line: a line item under its order's invoice.
type Line struct {
	InvoiceNumber  string  `json:"invoice_number"`
	OrderID        int64   `json:"purchase_order"`
	InvoiceDate    string  `json:"invoice_date"`
	InvoiceStatus  string  `json:"invoice_status"`
	CustomerName   string  `json:"customer_name"`
	PlaceOfSupply  string  `json:"place_of_supply"`
	Currency       string  `json:"currency_code"`
	ItemName       string  `json:"item_name"`
	HSN            string  `json:"hsn_sac"`
	ItemType       string  `json:"item_type"`
	Quantity       int     `json:"quantity"`
	UsageUnit      string  `json:"usage_unit"`
	ItemPrice      float64 `json:"item_price"`
	TaxPercent     float64 `json:"item_tax_percent"`
	EntityDiscount float64 `json:"entity_discount_amount"`
	ShippingCharge float64 `json:"shipping_charge"`
}

// Replacement logs an item renamed through the item database.
type Replacement struct {
	Original  string `json:"original_name"`
	Zoho      string `json:"zoho_name"`
	HSN       string `json:"hsn"`
	UsageUnit string `json:"usage_unit"`
}

// Completed keeps the completed orders, ascending by id.
func Completed(orders []woo.Order) []woo.Order {
	completed := make([]woo.Order, 0, len(orders))
	for _, order := range orders {
		if strings.EqualFold(order.Status, StatusCompleted) {
			completed = append(completed, order)
		}
	}
	slices.SortFunc(completed, func(a, b woo.Order) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return completed
}

func invoiceDate(order woo.Order) string {
	created, ok := order.Created()
	if !ok {
		return ""
	}
	return created.Format(invoiceDateLayout)
}

func capitalize(status string) string {
	if status == "" {
		return ""
	}
	status = strings.ToLower(status)
	return strings.ToUpper(status[:1]) + status[1:]
}

/*
BuildLines numbers completed from start under prefix and expands every line
item into a [Line].

Description: HSN and usage unit come from the line item meta first ("hsn",
"usage unit"). A non-empty name, HSN or usage unit in the item database
overrides them. The tax percent is the numeric tax class, or zero.
*/
func BuildLines(completed []woo.Order, items *ItemDatabase, prefix string, start int) ([]Line, []Replacement) {
	var (
		lines        []Line
		replacements []Replacement
	)
	for i, order := range completed {
		invoice := InvoiceNumber(prefix, start+i)
		date := invoiceDate(order)
		discount := woo.Amount(order.DiscountTotal)
		shipping := woo.Amount(order.ShippingTotal)

		for _, item := range order.LineItems {
			name := item.Name
			hsn := item.MetaValue("hsn")
			unit := item.MetaValue("usage unit")

			if mapped, ok := items.Lookup(item.Name); ok {
				if mapped.ZohoName != "" {
					name = mapped.ZohoName
				}
				if mapped.HSN != "" {
					hsn = mapped.HSN
				}
				if mapped.UsageUnit != "" {
					unit = mapped.UsageUnit
				}
				replacements = append(replacements, Replacement{Original: item.Name, Zoho: name, HSN: hsn, UsageUnit: unit})
			}

			lines = append(lines, Line{
				InvoiceNumber:  invoice,
				OrderID:        order.ID,
				InvoiceDate:    date,
				InvoiceStatus:  capitalize(order.Status),
				CustomerName:   order.Billing.FullName(),
				PlaceOfSupply:  order.Billing.State,
				Currency:       order.Currency,
				ItemName:       name,
				HSN:            hsn,
				ItemType:       ItemTypeGoods,
				Quantity:       item.Quantity,
				UsageUnit:      unit,
				ItemPrice:      item.Price,
				TaxPercent:     woo.Amount(item.TaxClass),
				EntityDiscount: discount,
				ShippingCharge: shipping,
			})
		}
	}
	return lines, replacements
}

func number(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func (l Line) record() []string {
	return []string{
		l.InvoiceNumber, strconv.FormatInt(l.OrderID, 10), l.InvoiceDate, l.InvoiceStatus,
		l.CustomerName, l.PlaceOfSupply, l.Currency, l.ItemName,
		l.HSN, l.ItemType, strconv.Itoa(l.Quantity), l.UsageUnit, number(l.ItemPrice),
		"FALSE", number(l.TaxPercent), DiscountType, "TRUE",
		number(l.EntityDiscount), number(l.ShippingCharge), ExemptionReason,
		SupplyTypeExempted, GSTTreatmentConsumer,
	}
}

// CSV renders lines as the Zoho import file with formula triggers neutralized.
func CSV(lines []Line) ([]byte, error) {
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		records = append(records, line.record())
	}
	return csvsafe.Encode(CSVHeader, records)
}

// # Summary

// OrderDetail is one row of the Order Details sheet.
type OrderDetail struct {
	InvoiceNumber string  `json:"invoice_number"`
	OrderID       int64   `json:"order_number"`
	Date          string  `json:"date"`
	CustomerName  string  `json:"customer_name"`
	Total         float64 `json:"order_total"`
}

// Summary is the content of the summary workbook.
type Summary struct {
	Fetched      int           `json:"total_orders_fetched"`
	Completed    int           `json:"completed_orders"`
	NetRevenue   float64       `json:"net_revenue"`
	OrderRange   string        `json:"order_id_range"`
	InvoiceRange string        `json:"invoice_number_range"`
	Orders       []OrderDetail `json:"orders"`
}

/*
Summarize totals completed (already sorted) out of fetched orders.

Description: An order counts with its total net of refunds. The ranges are
"first → last" and empty when nothing was completed.
*/
func Summarize(fetched int, completed []woo.Order, prefix string, start int) Summary {
	summary := Summary{Fetched: fetched, Completed: len(completed), Orders: make([]OrderDetail, 0, len(completed))}

	for i, order := range completed {
		net := order.TotalValue() - order.RefundedValue()
		summary.NetRevenue += net
		summary.Orders = append(summary.Orders, OrderDetail{
			InvoiceNumber: InvoiceNumber(prefix, start+i),
			OrderID:       order.ID,
			Date:          invoiceDate(order),
			CustomerName:  order.Billing.FullName(),
			Total:         net,
		})
	}

	if n := len(completed); n > 0 {
		summary.OrderRange = fmt.Sprintf("%d → %d", completed[0].ID, completed[n-1].ID)
		summary.InvoiceRange = fmt.Sprintf("%s → %s", InvoiceNumber(prefix, start), InvoiceNumber(prefix, start+n-1))
	}
	return summary
}

// Summary workbook layout.
var (
	MetricsSheet  = "Summary Metrics"
	DetailsSheet  = "Order Details"
	MetricsHeader = []string{"Metric", "Value"}
	DetailsHeader = []string{"Invoice Number", "Order Number", "Date", "Customer Name", "Order Total"}
)

// GrandTotalLabel marks the last row of the Order Details sheet.
const GrandTotalLabel = "Grand Total"

// Workbook renders summary as the Summary Metrics and Order Details sheets.
func (summary Summary) Workbook() ([]byte, error) {
	metrics := [][]any{
		{"Total Orders Fetched", summary.Fetched},
		{"Completed Orders", summary.Completed},
		{"Total Revenue (Net of Refunds)", summary.NetRevenue},
		{"Completed Order ID Range", summary.OrderRange},
		{"Invoice Number Range", summary.InvoiceRange},
	}

	details := make([][]any, 0, len(summary.Orders)+1)
	var grand float64
	for _, order := range summary.Orders {
		grand += order.Total
		details = append(details, []any{order.InvoiceNumber, order.OrderID, order.Date, order.CustomerName, order.Total})
	}
	details = append(details, []any{GrandTotalLabel, "", "", "", grand})

	return document.Workbook(
		document.Sheet{Name: MetricsSheet, Header: MetricsHeader, Rows: metrics, ColumnWidth: 34},
		document.Sheet{Name: DetailsSheet, Header: DetailsHeader, Rows: details, ColumnWidth: 24},
	)
}

// Filenames returns the CSV and workbook names of a range.
func Filenames(start, end time.Time) (string, string) {
	span := start.Format("20060102") + "_" + end.Format("20060102")
	return "orders_" + span + ".csv", "summary_report_" + span + ".xlsx"
}
