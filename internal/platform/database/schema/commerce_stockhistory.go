// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CommerceStockHistoryTable represents the 'commerce.stockhistory' audit of pushed changes.
type CommerceStockHistoryTable struct {
	Table        string
	ID           string
	BatchID      string
	ProductID    string
	VariationID  string
	Field        string
	OldValue     string
	NewValue     string
	Status       string
	ErrorMessage string
	ChangedBy    string
	CreatedAt    string
}

// CommerceStockHistory is the schema definition for commerce.stockhistory
var CommerceStockHistory = CommerceStockHistoryTable{
	Table:        "commerce.stockhistory",
	ID:           "id",
	BatchID:      "batchid",
	ProductID:    "productid",
	VariationID:  "variationid",
	Field:        "field",
	OldValue:     "oldvalue",
	NewValue:     "newvalue",
	Status:       "status",
	ErrorMessage: "errormessage",
	ChangedBy:    "changedby",
	CreatedAt:    "createdat",
}
