// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package stock implements the stock_price_updater screen.

Catalog rows fall into three lists: updatable, non-updatable and deleted,
decided by commerce.productsetting (no setting means updatable). Changes to
updatable rows are previewed, pushed to WooCommerce one row at a time and
audited field by field in commerce.stockhistory under a ULID batch id.
*/
package stock

import (
	"fmt"
	"strconv"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/pkg/pointer"
)

// Field names a value the updater can change.
type Field string

const (
	FieldStock        Field = "stock"
	FieldRegularPrice Field = "regular_price"
	FieldSalePrice    Field = "sale_price"
)

// Change sources recorded with every batch.
const (
	SourceManual = "manual"
	SourceExcel  = "excel_upload"
)

// Change is a requested update of one row. Nil values are left unchanged.
type Change struct {
	ProductID    int64    `json:"product_id"`
	VariationID  int64    `json:"variation_id"`
	Stock        *int     `json:"new_stock"`
	RegularPrice *float64 `json:"new_regular_price"`
	SalePrice    *float64 `json:"new_sale_price"`
}

// Ref returns the catalog key of the change.
func (c Change) Ref() catalog.Ref {
	return catalog.Ref{ProductID: c.ProductID, VariationID: c.VariationID}
}

// FieldChange is one field moving from Old to New.
type FieldChange struct {
	Field Field   `json:"field"`
	Old   float64 `json:"old"`
	New   float64 `json:"new"`
}

// Planned is a validated change of one row that differs from the catalog.
type Planned struct {
	catalog.Ref
	Name   string        `json:"product_name"`
	SKU    string        `json:"sku"`
	Fields []FieldChange `json:"changes"`
}

// Item is a catalog row with its update policy.
type Item struct {
	catalog.Product
	IsUpdatable bool `json:"is_updatable"`
	IsDeleted   bool `json:"is_deleted"`
}

// label names the item in messages.
func (item Item) label() string {
	if item.Name != "" {
		return item.Name
	}
	return fmt.Sprintf("%d/%d", item.ProductID, item.VariationID)
}

// plan checks change against item and returns the fields that actually move.
func plan(item Item, change Change) (*Planned, error) {
	switch {
	case item.IsDeleted:
		return nil, fmt.Errorf("%s: deleted from the store", item.label())
	case !item.IsUpdatable:
		return nil, fmt.Errorf("%s: not updatable", item.label())
	case change.Stock != nil && *change.Stock < 0:
		return nil, fmt.Errorf("%s: stock cannot be negative", item.label())
	case change.RegularPrice != nil && *change.RegularPrice < 0:
		return nil, fmt.Errorf("%s: price cannot be negative", item.label())
	case change.SalePrice != nil && *change.SalePrice < 0:
		return nil, fmt.Errorf("%s: sale price cannot be negative", item.label())
	}

	if change.SalePrice != nil {
		regular := item.Regular()
		if change.RegularPrice != nil {
			regular = *change.RegularPrice
		}
		if *change.SalePrice > regular {
			return nil, fmt.Errorf("%s: sale price (Rs. %.2f) is higher than regular price (Rs. %.2f)",
				item.label(), *change.SalePrice, regular)
		}
	}

	planned := &Planned{Ref: item.Ref(), Name: item.Name, SKU: item.SKU}
	if change.Stock != nil && *change.Stock != item.Stock() {
		planned.Fields = append(planned.Fields, FieldChange{FieldStock, float64(item.Stock()), float64(*change.Stock)})
	}
	if change.RegularPrice != nil && *change.RegularPrice != item.Regular() {
		planned.Fields = append(planned.Fields, FieldChange{FieldRegularPrice, item.Regular(), *change.RegularPrice})
	}
	if change.SalePrice != nil && *change.SalePrice != item.Sale() {
		planned.Fields = append(planned.Fields, FieldChange{FieldSalePrice, item.Sale(), *change.SalePrice})
	}
	if len(planned.Fields) == 0 {
		return nil, nil
	}
	return planned, nil
}

// format renders a field value the way it is stored in the history.
func (f FieldChange) format(value float64) string {
	if f.Field == FieldStock {
		return strconv.Itoa(int(value))
	}
	return woo.FormatPrice(value)
}

// update is the store body of planned.
func (p Planned) update() woo.ProductUpdate {
	var update woo.ProductUpdate
	for _, field := range p.Fields {
		switch field.Field {
		case FieldStock:
			update.StockQuantity = pointer.To(int(field.New))
		case FieldRegularPrice:
			update.RegularPrice = pointer.To(field.format(field.New))
		case FieldSalePrice:
			update.SalePrice = pointer.To(field.format(field.New))
		}
	}
	return update
}

// patch is the catalog update of planned.
func (p Planned) patch() catalog.Patch {
	var patch catalog.Patch
	for _, field := range p.Fields {
		switch field.Field {
		case FieldStock:
			patch.StockQuantity = pointer.To(int(field.New))
		case FieldRegularPrice:
			patch.RegularPrice = pointer.To(field.New)
		case FieldSalePrice:
			patch.SalePrice = pointer.To(field.New)
		}
	}
	return patch
}
