// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/orders"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

/*
TestCache_Upsert writes the order keyed on its id.
*/
func TestCache_Upsert(t *testing.T) {
	mock := newMock(t)
	syncedAt := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	order := sampleOrders()[0]

	mock.ExpectExec(`INSERT INTO commerce.ordercache .* ON CONFLICT \(orderid\) DO UPDATE`).
		WithArgs(
			int64(205), time.Date(2026, 3, 2, 18, 45, 0, 0, time.UTC), "processing", 640.0,
			"Asha Rao", "9800000001", 3, pgxmock.AnyArg(), syncedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := orders.NewCache(mock).Upsert(context.Background(), order, syncedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCache_Upsert_InvalidDate refuses orders without a parseable date.
*/
func TestCache_Upsert_InvalidDate(t *testing.T) {
	mock := newMock(t)

	err := orders.NewCache(mock).Upsert(context.Background(), woo.Order{ID: 1, DateCreated: "yesterday"}, time.Now())

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCache_StatusTotals scans one bucket per status.
*/
func TestCache_StatusTotals(t *testing.T) {
	mock := newMock(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\), COALESCE\(SUM\(total\), 0\)::float8 FROM commerce.ordercache`).
		WithArgs(start, end).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count", "sum"}).
			AddRow("processing", 4, 1200.5).
			AddRow("refunded", 1, 99.0))

	totals, err := orders.NewCache(mock).StatusTotals(context.Background(), start, end)

	require.NoError(t, err)
	assert.Equal(t, []orders.StatusTotal{
		{Status: "processing", Count: 4, Value: 1200.5},
		{Status: "refunded", Count: 1, Value: 99.0},
	}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCache_DeleteBefore returns the number of removed rows.
*/
func TestCache_DeleteBefore(t *testing.T) {
	mock := newMock(t)
	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM commerce.ordercache WHERE orderdate < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 17))

	deleted, err := orders.NewCache(mock).DeleteBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
