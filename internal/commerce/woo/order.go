// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package woo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
)

// FetchWorkers bounds the concurrent page requests of one fetch.
const FetchWorkers = 3

// dateLayout is the wire format of the after/before filters.
const dateLayout = "2006-01-02"

// # Wire Types

// Address is the billing or shipping block of an order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// FullName joins the first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Meta is one meta_data entry of a line item.
type Meta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// LineItem is one product line of an order.
type LineItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ProductID   int64   `json:"product_id"`
	VariationID int64   `json:"variation_id"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       string  `json:"total"`
	TaxClass    string  `json:"tax_class"`
	SKU         string  `json:"sku"`
	MetaData    []Meta  `json:"meta_data"`
}

// MetaValue returns the first meta value whose key matches case-insensitively.
func (item LineItem) MetaValue(key string) string {
	for _, meta := range item.MetaData {
		if strings.EqualFold(strings.TrimSpace(meta.Key), key) && meta.Value != nil {
			return strings.TrimSpace(fmt.Sprint(meta.Value))
		}
	}
	return ""
}

// Refund is a refund summary embedded in an order.
type Refund struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
	Total  string `json:"total"`
}

// Order is the subset of a wc/v3 order the dashboard uses.
type Order struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	Currency      string     `json:"currency"`
	DateCreated   string     `json:"date_created"`
	Total         string     `json:"total"`
	ShippingTotal string     `json:"shipping_total"`
	DiscountTotal string     `json:"discount_total"`
	Billing       Address    `json:"billing"`
	Shipping      Address    `json:"shipping"`
	LineItems     []LineItem `json:"line_items"`
	Refunds       []Refund   `json:"refunds"`
}

// Created parses date_created (store local time, no zone).
func (o Order) Created() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
		if parsed, err := time.Parse(layout, o.DateCreated); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// TotalValue is the order total as a number. Malformed totals are zero.
func (o Order) TotalValue() float64 { return Amount(o.Total) }

// RefundedValue is the positive sum of all refunds.
func (o Order) RefundedValue() float64 {
	var sum float64
	for _, refund := range o.Refunds {
		sum += math.Abs(Amount(refund.Total))
	}
	return sum
}

// ItemCount sums the quantities of every line item.
func (o Order) ItemCount() int {
	count := 0
	for _, item := range o.LineItems {
		count += item.Quantity
	}
	return count
}

// Amount parses a decimal string, returning zero when it is empty or malformed.
func Amount(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

// # Fetch

func orderQuery(start, end time.Time, page int) url.Values {
	return url.Values{
		"after":    {start.Format(dateLayout) + "T00:00:00"},
		"before":   {end.Format(dateLayout) + "T23:59:59"},
		"per_page": {strconv.Itoa(PerPage)},
		"page":     {strconv.Itoa(page)},
		"status":   {"any"},
		"order":    {"asc"},
		"orderby":  {"id"},
	}
}

func (client *Client) ordersPage(ctx context.Context, start, end time.Time, page int) ([]Order, int, error) {
	var orders []Order
	header, err := client.get(ctx, "/orders", orderQuery(start, end, page), &orders)
	if err != nil {
		return nil, 0, err
	}
	return orders, totalPages(header), nil
}

/*
FetchOrders returns every order created between start and end (whole days).

Description: Page 1 is fetched first to learn X-WP-TotalPages. The remaining
pages are fetched by a pool of workers. A page that still fails after its
retries is logged and skipped, so the result may be partial. The order of the
returned slice is unspecified.

Returns:
  - []Order: Collected orders
  - error: Failure of page 1, or ctx.Err() when cancelled
*/
func (client *Client) FetchOrders(ctx context.Context, start, end time.Time) ([]Order, error) {
	logger := ctxutil.GetLogger(ctx)

	first, pages, err := client.ordersPage(ctx, start, end, 1)
	if err != nil {
		client.metrics.WooPage(metrics.PageFailed)
		return nil, fmt.Errorf("woo_fetch_orders_failed: %w", err)
	}
	client.metrics.WooPage(metrics.PageOK)

	var (
		mu     sync.Mutex
		orders = first
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(client.workers)

	for page := 2; page <= pages; page++ {
		group.Go(func() error {
			batch, _, err := client.ordersPage(groupCtx, start, end, page)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				client.metrics.WooPage(metrics.PageFailed)
				logger.Warn("woo_page_failed", slog.Int("page", page), slog.Any("error", err))
				return nil
			}
			client.metrics.WooPage(metrics.PageOK)

			mu.Lock()
			orders = append(orders, batch...)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	logger.Info("woo_orders_fetched",
		slog.Int("pages", pages),
		slog.Int("orders", len(orders)),
	)
	return orders, nil
}

// Raw re-encodes o for storage.
func (o Order) Raw() (json.RawMessage, error) {
	return json.Marshal(o)
}
