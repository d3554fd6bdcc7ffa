// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
)

// StatusTotal is the count and summed value of cached orders in one status.
type StatusTotal struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
}

// Cache defines the data access contract for commerce.ordercache.
type Cache interface {
	Upsert(ctx context.Context, order woo.Order, syncedAt time.Time) error
	StatusTotals(ctx context.Context, start, end time.Time) ([]StatusTotal, error)
	LastSync(ctx context.Context) (*time.Time, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresCache implements [Cache] using pgx.
type PostgresCache struct {
	db postgres.DB
}

// NewCache creates the Postgres order cache.
func NewCache(db postgres.DB) *PostgresCache {
	return &PostgresCache{db: db}
}

var cacheTable = schema.CommerceOrderCache

/*
Upsert stores one order keyed on its id, replacing an earlier copy.

Parameters:
  - ctx: context.Context
  - order: woo.Order as returned by the store
  - syncedAt: time.Time stamped on the row

Returns:
  - error: Encoding or write failures
*/
func (cache *PostgresCache) Upsert(ctx context.Context, order woo.Order, syncedAt time.Time) error {
	created, ok := order.Created()
	if !ok {
		return fmt.Errorf("postgres_ordercache_upsert_failed: order %d has no valid date_created", order.ID)
	}

	payload, err := order.Raw()
	if err != nil {
		return fmt.Errorf("postgres_ordercache_encode_failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		cacheTable.Table,
		cacheTable.OrderID, cacheTable.OrderDate, cacheTable.Status, cacheTable.Total,
		cacheTable.CustomerName, cacheTable.Phone, cacheTable.ItemCount, cacheTable.Payload, cacheTable.SyncedAt,
		cacheTable.OrderID,
		cacheTable.OrderDate, cacheTable.OrderDate,
		cacheTable.Status, cacheTable.Status,
		cacheTable.Total, cacheTable.Total,
		cacheTable.CustomerName, cacheTable.CustomerName,
		cacheTable.Phone, cacheTable.Phone,
		cacheTable.ItemCount, cacheTable.ItemCount,
		cacheTable.Payload, cacheTable.Payload,
		cacheTable.SyncedAt, cacheTable.SyncedAt,
	)

	_, err = cache.db.Exec(ctx, query,
		order.ID, created, order.Status, order.TotalValue(),
		order.Billing.FullName(), order.Billing.Phone, order.ItemCount(), payload, syncedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_ordercache_upsert_failed: %w", err)
	}
	return nil
}

// StatusTotals groups cached orders dated within [start, end) by status.
func (cache *PostgresCache) StatusTotals(ctx context.Context, start, end time.Time) ([]StatusTotal, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*), COALESCE(SUM(%s), 0)::float8
		FROM %s
		WHERE %s >= $1 AND %s < $2
		GROUP BY %s`,
		cacheTable.Status, cacheTable.Total,
		cacheTable.Table,
		cacheTable.OrderDate, cacheTable.OrderDate,
		cacheTable.Status,
	)

	rows, err := cache.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres_ordercache_totals_failed: %w", err)
	}
	defer rows.Close()

	var totals []StatusTotal
	for rows.Next() {
		var total StatusTotal
		if err := rows.Scan(&total.Status, &total.Count, &total.Value); err != nil {
			return nil, fmt.Errorf("postgres_ordercache_totals_scan_failed: %w", err)
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// LastSync returns the newest sync stamp, or nil for an empty cache.
func (cache *PostgresCache) LastSync(ctx context.Context) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT MAX(%s) FROM %s`, cacheTable.SyncedAt, cacheTable.Table)

	var last *time.Time
	err := cache.db.QueryRow(ctx, query).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres_ordercache_last_sync_failed: %w", err)
	}
	return last, nil
}

// DeleteBefore removes orders dated before cutoff and returns how many went.
func (cache *PostgresCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, cacheTable.Table, cacheTable.OrderDate)

	tag, err := cache.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres_ordercache_delete_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
