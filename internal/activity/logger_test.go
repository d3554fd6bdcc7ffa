// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/activity"
)

/*
TestRecord_SwallowsFailure proves an insert error never reaches the caller.
*/
func TestRecord_SwallowsFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO system.activitylog`).
		WillReturnError(errors.New("connection reset"))

	logger := activity.NewLogger(activity.NewRepository(mock))
	assert.NotPanics(t, func() {
		logger.Record(context.Background(), activity.Entry{UserID: "u1", ActionType: activity.ActionLogout})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestList_FilterBuildsWhere passes user and action filters as positional args.
*/
func TestList_FilterBuildsWhere(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE l.userid = \$1 AND l.actiontype = \$2\s+ORDER BY l.createdat DESC\s+LIMIT \$3`).
		WithArgs("u1", "login", 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "userid", "email", "actiontype", "modulekey", "description", "metadata", "success", "createdat",
		}).AddRow("e1", "u1", "u1@example.com", "login", "", "User logged in", map[string]any{}, true, now))

	logger := activity.NewLogger(activity.NewRepository(mock))
	entries, err := logger.List(context.Background(), activity.Filter{
		UserID: "u1", ActionType: activity.ActionLogin, Limit: 50,
	})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.ActionLogin, entries[0].ActionType)
	assert.Equal(t, "u1@example.com", entries[0].UserEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}
