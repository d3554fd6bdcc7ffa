// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CommerceProductSettingTable represents the 'commerce.productsetting' table
// controlling which catalog rows the stock updater may touch.
type CommerceProductSettingTable struct {
	Table       string
	ProductID   string
	VariationID string
	IsUpdatable string
	IsDeleted   string
	UpdatedBy   string
	UpdatedAt   string
}

// CommerceProductSetting is the schema definition for commerce.productsetting
var CommerceProductSetting = CommerceProductSettingTable{
	Table:       "commerce.productsetting",
	ProductID:   "productid",
	VariationID: "variationid",
	IsUpdatable: "isupdatable",
	IsDeleted:   "isdeleted",
	UpdatedBy:   "updatedby",
	UpdatedAt:   "updatedat",
}
