// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CommerceOrderCacheTable represents the 'commerce.ordercache' table.
type CommerceOrderCacheTable struct {
	Table        string
	OrderID      string
	OrderDate    string
	Status       string
	Total        string
	CustomerName string
	Phone        string
	ItemCount    string
	Payload      string
	SyncedAt     string
}

// CommerceOrderCache is the schema definition for commerce.ordercache
var CommerceOrderCache = CommerceOrderCacheTable{
	Table:        "commerce.ordercache",
	OrderID:      "orderid",
	OrderDate:    "orderdate",
	Status:       "status",
	Total:        "total",
	CustomerName: "customername",
	Phone:        "phone",
	ItemCount:    "itemcount",
	Payload:      "payload",
	SyncedAt:     "syncedat",
}
