// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestExportCSV sanitizes cells and names the file after the clock.
*/
func TestExportCSV(t *testing.T) {
	logger := &Logger{now: func() time.Time { return time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC) }}

	body, name, err := logger.ExportCSV([]Entry{{
		UserEmail:   "ops@example.com",
		ActionType:  ActionAdmin,
		Description: "=HYPERLINK(\"http://x\")",
		Success:     true,
		CreatedAt:   time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
	}})

	require.NoError(t, err)
	assert.Equal(t, "activity_logs_20260309_140507.csv", name)
	assert.Contains(t, string(body), "Timestamp,User,Action,Module,Description,Success\n")
	assert.Contains(t, string(body), `'=HYPERLINK(""http://x"")`)
}

/*
TestClampLimit bounds listing sizes.
*/
func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, clampLimit(0))
	assert.Equal(t, 25, clampLimit(25))
	assert.Equal(t, MaxLimit, clampLimit(5000))
}
