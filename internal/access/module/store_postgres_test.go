// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package module_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
)

var moduleColumns = []string{
	"modulekey", "name", "icon", "description", "isactive", "displayorder", "createdat", "updatedat",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

/*
TestCatalog_ListActive scans the active catalog in display order.
*/
func TestCatalog_ListActive(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM access.module WHERE isactive = TRUE ORDER BY displayorder`).
		WillReturnRows(pgxmock.NewRows(moduleColumns).
			AddRow(module.KeyOrderExtractor, "Order Extractor", "📦", "", true, 1, now, now).
			AddRow(module.KeyStockPriceUpdater, "Stock & Price Updater", "💰", "", true, 2, now, now))

	repo := module.NewCatalogRepository(mock)
	modules, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, module.KeyOrderExtractor, modules[0].Key)
	assert.Equal(t, 2, modules[1].DisplayOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCatalog_Delete_Referenced maps the foreign-key violation to CONFLICT.
*/
func TestCatalog_Delete_Referenced(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`DELETE FROM access.module`).
		WithArgs(module.KeyOrderExtractor).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	err := module.NewCatalogRepository(mock).Delete(context.Background(), module.KeyOrderExtractor)

	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCatalog_SetActive_Missing reports NOT_FOUND when no row changed.
*/
func TestCatalog_SetActive_Missing(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`UPDATE access.module SET isactive`).
		WithArgs(module.Key("ghost"), false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := module.NewCatalogRepository(mock).SetActive(context.Background(), "ghost", false)

	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGrant_Replace runs delete and inserts inside one transaction.
*/
func TestGrant_Replace(t *testing.T) {
	mock := newMock(t)
	keys := []module.Key{module.KeyOrderExtractor, module.KeyMRPLabelGenerator}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM access.grant`).WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	for _, key := range keys {
		mock.ExpectExec(`INSERT INTO access.grant`).WithArgs("u1", key, "admin-1").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err := module.NewGrantRepository(mock).Replace(context.Background(), "u1", keys, "admin-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGrant_Replace_RollsBack aborts the transaction on an insert failure.
*/
func TestGrant_Replace_RollsBack(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM access.grant`).WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO access.grant`).WithArgs("u1", module.Key("nope"), "").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	mock.ExpectRollback()

	err := module.NewGrantRepository(mock).Replace(context.Background(), "u1", []module.Key{"nope"}, "")

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGrant_ListGrantedModules joins grants with the active catalog.
*/
func TestGrant_ListGrantedModules(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM access.grant g\s+JOIN access.module m`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(moduleColumns).
			AddRow(module.KeyOrderExtractor, "Order Extractor", "📦", "", true, 1, now, now))

	modules, err := module.NewGrantRepository(mock).ListGrantedModules(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, []module.Key{module.KeyOrderExtractor}, []module.Key{modules[0].Key})
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGrant_ListGrantees reads the user ids holding a module grant.
*/
func TestGrant_ListGrantees(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT userid::text FROM access.grant WHERE modulekey = \$1 ORDER BY userid`).
		WithArgs(module.KeyOrderExtractor).
		WillReturnRows(pgxmock.NewRows([]string{"userid"}).AddRow("u1").AddRow("u2"))

	userIDs, err := module.NewGrantRepository(mock).ListGrantees(context.Background(), module.KeyOrderExtractor)

	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, userIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
