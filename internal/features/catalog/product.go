// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog implements the product_management screen and owns the local
product catalog (commerce.product).

A catalog row is keyed on (product_id, variation_id). Simple products and
variable parents carry variation_id 0. The catalog is filled from WooCommerce
by a one-way sync and edited by administrators. The stock_price_updater
screen reads and updates it through [Repository].
*/
package catalog

import (
	"time"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// Statuses are the WooCommerce post statuses a catalog row may carry.
var Statuses = []string{"publish", "draft", "pending", "private"}

// DefaultStatus is assigned when none is given.
const DefaultStatus = "publish"

// Ref identifies one catalog row.
type Ref struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id"`
}

// Product is one row of the local catalog.
type Product struct {
	ProductID     int64      `json:"product_id"`
	VariationID   int64      `json:"variation_id"`
	SKU           string     `json:"sku"`
	Name          string     `json:"product_name"`
	ParentProduct string     `json:"parent_product"`
	Attribute     string     `json:"attribute"`
	RegularPrice  *float64   `json:"regular_price"`
	SalePrice     *float64   `json:"sale_price"`
	StockQuantity *int       `json:"stock_quantity"`
	Status        string     `json:"product_status"`
	Categories    string     `json:"categories"`
	IsActive      bool       `json:"is_active"`
	UpdatedBy     string     `json:"updated_by"`
	LastSynced    *time.Time `json:"last_synced"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Ref returns the key of the row.
func (p Product) Ref() Ref {
	return Ref{ProductID: p.ProductID, VariationID: p.VariationID}
}

// Stock returns the stock quantity, zero when unset.
func (p Product) Stock() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}

// Regular returns the regular price, zero when unset.
func (p Product) Regular() float64 {
	if p.RegularPrice == nil {
		return 0
	}
	return *p.RegularPrice
}

// Sale returns the sale price, zero when unset.
func (p Product) Sale() float64 {
	if p.SalePrice == nil {
		return 0
	}
	return *p.SalePrice
}

// Patch is a partial update of a catalog row. Nil fields are left unchanged.
type Patch struct {
	SKU           *string    `json:"sku,omitempty"`
	Name          *string    `json:"product_name,omitempty"`
	ParentProduct *string    `json:"parent_product,omitempty"`
	Attribute     *string    `json:"attribute,omitempty"`
	RegularPrice  *float64   `json:"regular_price,omitempty"`
	SalePrice     *float64   `json:"sale_price,omitempty"`
	StockQuantity *int       `json:"stock_quantity,omitempty"`
	Status        *string    `json:"product_status,omitempty"`
	Categories    *string    `json:"categories,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	LastSynced    *time.Time `json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.SKU == nil && p.Name == nil && p.ParentProduct == nil && p.Attribute == nil &&
		p.RegularPrice == nil && p.SalePrice == nil && p.StockQuantity == nil &&
		p.Status == nil && p.Categories == nil && p.IsActive == nil && p.LastSynced == nil
}

func (p Patch) validate(validator *validate.Validator) {
	if p.Name != nil {
		validator.Required("product_name", *p.Name).MaxLen("product_name", *p.Name, 500)
	}
	if p.Status != nil {
		validator.OneOf("product_status", *p.Status, Statuses...)
	}
	if p.RegularPrice != nil {
		validator.Custom("regular_price", *p.RegularPrice < 0, "Must not be negative")
	}
	if p.SalePrice != nil {
		validator.Custom("sale_price", *p.SalePrice < 0, "Must not be negative")
	}
	if p.StockQuantity != nil {
		validator.Custom("stock_quantity", *p.StockQuantity < 0, "Must not be negative")
	}
}

// Filter narrows a catalog listing.
type Filter struct {
	Status     string
	Category   string
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// StatusCount is the size of one status bucket.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Stats summarises the catalog.
type Stats struct {
	Total      int           `json:"total"`
	Active     int           `json:"active"`
	Inactive   int           `json:"inactive"`
	Simple     int           `json:"simple"`
	Variations int           `json:"variations"`
	ByStatus   []StatusCount `json:"by_status"`
}

// fromWoo converts a store product to a catalog row. Variable products with
// no variations are skipped, as are products without an id.
func fromWoo(p woo.Product) (Product, bool) {
	if p.ID == 0 || (p.Type == "variable" && len(p.Variations) == 0) {
		return Product{}, false
	}

	product := Product{
		ProductID:  p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Status:     p.Status,
		Categories: p.CategoryNames(),
		IsActive:   true,
	}
	if product.Status == "" {
		product.Status = DefaultStatus
	}
	if p.RegularPrice != "" {
		price := woo.Amount(p.RegularPrice)
		product.RegularPrice = &price
	}
	if p.SalePrice != "" {
		price := woo.Amount(p.SalePrice)
		product.SalePrice = &price
	}
	stock := p.Stock()
	product.StockQuantity = &stock
	return product, true
}
