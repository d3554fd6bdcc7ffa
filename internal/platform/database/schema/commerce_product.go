// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CommerceProductTable represents the local 'commerce.product' catalog.
type CommerceProductTable struct {
	Table         string
	ProductID     string
	VariationID   string
	SKU           string
	ProductName   string
	ParentProduct string
	Attribute     string
	RegularPrice  string
	SalePrice     string
	StockQuantity string
	ProductStatus string
	Categories    string
	IsActive      string
	UpdatedBy     string
	LastSynced    string
	CreatedAt     string
	UpdatedAt     string
}

// CommerceProduct is the schema definition for commerce.product
var CommerceProduct = CommerceProductTable{
	Table:         "commerce.product",
	ProductID:     "productid",
	VariationID:   "variationid",
	SKU:           "sku",
	ProductName:   "productname",
	ParentProduct: "parentproduct",
	Attribute:     "attribute",
	RegularPrice:  "regularprice",
	SalePrice:     "saleprice",
	StockQuantity: "stockquantity",
	ProductStatus: "productstatus",
	Categories:    "categories",
	IsActive:      "isactive",
	UpdatedBy:     "updatedby",
	LastSynced:    "lastsynced",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

// Columns returns the columns read by catalog listings, in scan order.
func (t CommerceProductTable) Columns() []string {
	return []string{
		t.ProductID, t.VariationID, t.SKU, t.ProductName, t.ParentProduct, t.Attribute,
		t.RegularPrice, t.SalePrice, t.StockQuantity, t.ProductStatus, t.Categories,
		t.IsActive, t.UpdatedBy, t.LastSynced, t.CreatedAt, t.UpdatedAt,
	}
}
