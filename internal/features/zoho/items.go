// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package zoho implements the woocommerce_zoho_export screen.

Completed WooCommerce orders of a date range become Zoho Books invoice lines.
Every order gets the next number of a prefixed sequence and every line item
one CSV row. An optional item database renames WooCommerce products to their
Zoho names and supplies HSN codes and usage units. The CSV ships in a zip
together with a two-sheet summary workbook.
*/
package zoho

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/opsdash/internal/platform/document"
)

// ItemDatabaseKey is the object key of the saved item database.
const ItemDatabaseKey = "zoho/item_database.xlsx"

// Item database headers, matched case-insensitively.
const (
	ColumnWooName   = "woocommerce name"
	ColumnZohoName  = "zoho name"
	ColumnHSN       = "hsn"
	ColumnUsageUnit = "usage unit"
)

// Item maps one WooCommerce product name to its Zoho invoice fields.
type Item struct {
	WooName   string `json:"woocommerce_name"`
	ZohoName  string `json:"zoho_name"`
	HSN       string `json:"hsn"`
	UsageUnit string `json:"usage_unit"`
}

// ItemDatabase is a name mapping keyed by the NFC-normalized, lowercased
// WooCommerce name.
// The zero value and nil are empty databases.
type ItemDatabase struct {
	items    []Item
	byName   map[string]int
	Warnings []string
}

func itemKey(name string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
}

/*
ParseItemDatabase reads an item database spreadsheet.

Description: Only the "woocommerce name" column is required. A missing
optional column is reported in Warnings and read as empty. Blank names are
skipped and the first row of a repeated name wins.
*/
func ParseItemDatabase(filename string, data []byte) (*ItemDatabase, error) {
	table, err := document.ReadTable(filename, data, "")
	if err != nil {
		return nil, err
	}
	columns, err := table.RequireColumns(map[string][]string{ColumnWooName: {ColumnWooName}})
	if err != nil {
		return nil, err
	}

	database := &ItemDatabase{byName: map[string]int{}}
	optional := map[string]int{}
	for _, name := range []string{ColumnZohoName, ColumnHSN, ColumnUsageUnit} {
		optional[name] = table.Column(name)
		if optional[name] < 0 {
			database.Warnings = append(database.Warnings, "Item database is missing the column: "+name)
		}
	}

	for _, cells := range table.Rows {
		woo := document.Cell(cells, columns[ColumnWooName])
		key := itemKey(woo)
		if key == "" {
			continue
		}
		if _, seen := database.byName[key]; seen {
			continue
		}
		database.byName[key] = len(database.items)
		database.items = append(database.items, Item{
			WooName:   woo,
			ZohoName:  document.Cell(cells, optional[ColumnZohoName]),
			HSN:       document.Cell(cells, optional[ColumnHSN]),
			UsageUnit: document.Cell(cells, optional[ColumnUsageUnit]),
		})
	}
	return database, nil
}

// Lookup finds the mapping of a WooCommerce product name.
func (db *ItemDatabase) Lookup(name string) (Item, bool) {
	if db == nil {
		return Item{}, false
	}
	i, ok := db.byName[itemKey(name)]
	if !ok {
		return Item{}, false
	}
	return db.items[i], true
}

// Items returns the mappings in sheet order.
func (db *ItemDatabase) Items() []Item {
	if db == nil {
		return []Item{}
	}
	return append([]Item{}, db.items...)
}

// Len counts the mappings.
func (db *ItemDatabase) Len() int {
	if db == nil {
		return 0
	}
	return len(db.items)
}

// Workbook renders the mappings under the four item database headers.
func (db *ItemDatabase) Workbook() ([]byte, error) {
	items := db.Items()
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{item.WooName, item.ZohoName, item.HSN, item.UsageUnit})
	}
	return document.Workbook(document.Sheet{
		Name:        "Items",
		Header:      []string{"WooCommerce Name", "Zoho Name", "HSN", "Usage Unit"},
		Rows:        rows,
		ColumnWidth: 32,
	})
}
