// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package woo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Category is a product category reference.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Attribute is a variation attribute (e.g. Size: 500g).
type Attribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// Product is a wc/v3 product or variation.
type Product struct {
	ID            int64       `json:"id"`
	ParentID      int64       `json:"parent_id"`
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Status        string      `json:"status"`
	SKU           string      `json:"sku"`
	RegularPrice  string      `json:"regular_price"`
	SalePrice     string      `json:"sale_price"`
	StockQuantity *int        `json:"stock_quantity"`
	Categories    []Category  `json:"categories"`
	Attributes    []Attribute `json:"attributes"`
	Variations    []int64     `json:"variations"`
}

// CategoryNames joins the category names with ", ".
func (p Product) CategoryNames() string {
	names := make([]string, 0, len(p.Categories))
	for _, category := range p.Categories {
		names = append(names, category.Name)
	}
	return strings.Join(names, ", ")
}

// Stock returns the stock quantity, zero when the store does not manage it.
func (p Product) Stock() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}

// ProductUpdate is the body of a price or stock PUT. Nil fields are omitted.
type ProductUpdate struct {
	ManageStock   *bool   `json:"manage_stock,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	RegularPrice  *string `json:"regular_price,omitempty"`
	SalePrice     *string `json:"sale_price,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProductUpdate) Empty() bool {
	return u.StockQuantity == nil && u.RegularPrice == nil && u.SalePrice == nil
}

// FormatPrice renders a price the way the store stores it.
func FormatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func productPath(productID, variationID int64) string {
	if variationID != 0 {
		return fmt.Sprintf("/products/%d/variations/%d", productID, variationID)
	}
	return fmt.Sprintf("/products/%d", productID)
}

/*
ListProducts pages through the catalog until limit products are collected
or the store runs out.
*/
func (client *Client) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	var products []Product
	for page := 1; limit <= 0 || len(products) < limit; page++ {
		var batch []Product
		query := url.Values{
			"per_page": {strconv.Itoa(PerPage)},
			"page":     {strconv.Itoa(page)},
			"status":   {"any"},
		}
		header, err := client.get(ctx, "/products", query, &batch)
		if err != nil {
			return nil, fmt.Errorf("woo_list_products_failed: %w", err)
		}
		products = append(products, batch...)
		if len(batch) == 0 || page >= totalPages(header) {
			break
		}
	}
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

// GetProduct fetches a product, or a variation when variationID is non-zero.
// A product deleted from the store reports [IsNotFound].
func (client *Client) GetProduct(ctx context.Context, productID, variationID int64) (*Product, error) {
	var product Product
	if _, err := client.get(ctx, productPath(productID, variationID), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct writes update to a product or variation.
func (client *Client) UpdateProduct(ctx context.Context, productID, variationID int64, update ProductUpdate) error {
	if update.StockQuantity != nil && update.ManageStock == nil {
		manage := true
		update.ManageStock = &manage
	}
	return client.put(ctx, productPath(productID, variationID), update, nil)
}
