// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/orders"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Fakes

type fakeSource struct {
	orders []woo.Order
	err    error
	calls  int
}

func (f *fakeSource) FetchOrders(context.Context, time.Time, time.Time) ([]woo.Order, error) {
	f.calls++
	return f.orders, f.err
}

type fakeCache struct {
	upserted []int64
	failID   int64
	totals   []orders.StatusTotal
	last     *time.Time
	cutoff   time.Time
}

func (f *fakeCache) Upsert(_ context.Context, order woo.Order, _ time.Time) error {
	if order.ID == f.failID {
		return errors.New("constraint")
	}
	f.upserted = append(f.upserted, order.ID)
	return nil
}

func (f *fakeCache) StatusTotals(context.Context, time.Time, time.Time) ([]orders.StatusTotal, error) {
	return f.totals, nil
}

func (f *fakeCache) LastSync(context.Context) (*time.Time, error) { return f.last, nil }

func (f *fakeCache) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeRecorder struct{ entries []activity.Entry }

func (f *fakeRecorder) Record(_ context.Context, entry activity.Entry) {
	f.entries = append(f.entries, entry)
}

func newService(source *fakeSource, cache *fakeCache) (*orders.Service, *fakeRecorder) {
	recorder := &fakeRecorder{}
	return orders.NewService(source, cache, recorder), recorder
}

// # Service

/*
TestFetch_RangeValidation rejects bad ranges before calling the store.
*/
func TestFetch_RangeValidation(t *testing.T) {
	tests := []struct {
		name  string
		input orders.RangeInput
	}{
		{"malformed", orders.RangeInput{StartDate: "03/01/2026", EndDate: "2026-03-02"}},
		{"reversed", orders.RangeInput{StartDate: "2026-03-10", EndDate: "2026-03-01"}},
		{"too_long", orders.RangeInput{StartDate: "2026-01-01", EndDate: "2026-02-15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{}
			service, recorder := newService(source, &fakeCache{})

			_, err := service.Fetch(context.Background(), "user-1", tt.input)

			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			assert.Zero(t, source.calls)
			assert.Empty(t, recorder.entries)
		})
	}
}

/*
TestFetch_Success accepts a 31-day span and records order_fetch.
*/
func TestFetch_Success(t *testing.T) {
	service, recorder := newService(&fakeSource{orders: sampleOrders()}, &fakeCache{})

	result, err := service.Fetch(context.Background(), "user-1", orders.RangeInput{StartDate: "2026-03-01", EndDate: "2026-04-01"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, int64(198), result.Rows[0].OrderID)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, activity.ActionOrderFetch, recorder.entries[0].ActionType)
	assert.Equal(t, "order_extractor", recorder.entries[0].ModuleKey)
	assert.True(t, recorder.entries[0].Success)
}

/*
TestFetch_UpstreamFailure maps store errors to BAD_GATEWAY and records the failure.
*/
func TestFetch_UpstreamFailure(t *testing.T) {
	service, recorder := newService(&fakeSource{err: errors.New("timeout")}, &fakeCache{})

	_, err := service.Fetch(context.Background(), "user-1", orders.RangeInput{StartDate: "2026-03-01", EndDate: "2026-03-02"})

	assert.True(t, apperr.HasCode(err, apperr.CodeBadGateway))
	require.Len(t, recorder.entries, 1)
	assert.False(t, recorder.entries[0].Success)
}

/*
TestSync_CountsFailures keeps upserting after one order fails.
*/
func TestSync_CountsFailures(t *testing.T) {
	cache := &fakeCache{failID: 205}
	service, recorder := newService(&fakeSource{orders: sampleOrders()}, cache)

	result, err := service.Sync(context.Background(), "user-1", orders.RangeInput{StartDate: "2026-01-01", EndDate: "2026-03-15"})

	require.NoError(t, err)
	assert.Equal(t, orders.SyncResult{Success: 1, Errors: 1, Total: 2}, *result)
	assert.Equal(t, []int64{198}, cache.upserted)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, activity.ActionSync, recorder.entries[0].ActionType)
}

/*
TestStatusMetrics fills missing statuses with zeros in request order.
*/
func TestStatusMetrics(t *testing.T) {
	cache := &fakeCache{totals: []orders.StatusTotal{{Status: "pending", Count: 2, Value: 300}}}
	service, _ := newService(&fakeSource{}, cache)

	metrics, err := service.StatusMetrics(context.Background(), time.Now(), time.Now(), nil)

	require.NoError(t, err)
	assert.Equal(t, []orders.StatusTotal{
		{Status: "processing"},
		{Status: "pending", Count: 2, Value: 300},
		{Status: "cancelled"},
		{Status: "refunded"},
	}, metrics)
}

/*
TestClearCache defaults to the retention window.
*/
func TestClearCache(t *testing.T) {
	cache := &fakeCache{}
	service, recorder := newService(&fakeSource{}, cache)

	deleted, err := service.ClearCache(context.Background(), "admin-1", 0)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -orders.DefaultRetentionDays), cache.cutoff, time.Minute)
	require.Len(t, recorder.entries, 1)
}

// # HTTP

func serve(screen *orders.Screen, method, target, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request = request.WithContext(auth.WithSession(request.Context(), &auth.Session{
		User: auth.Identity{UserID: "user-1", Email: "user@example.com"},
	}))
	recorder := httptest.NewRecorder()
	screen.Routes().ServeHTTP(recorder, request)
	return recorder
}

/*
TestScreen_Export streams the workbook as an attachment.
*/
func TestScreen_Export(t *testing.T) {
	service, recorder := newService(&fakeSource{orders: sampleOrders()}, &fakeCache{})
	screen := orders.NewScreen(service)

	response := serve(screen, http.MethodPost, "/export", `{"start_date":"2026-03-01","end_date":"2026-03-31"}`)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, constants.ContentTypeXLSX, response.Header().Get("Content-Type"))
	assert.Contains(t, response.Header().Get("Content-Disposition"), "orders_20260301_20260331.xlsx")
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, activity.ActionOrderDownload, recorder.entries[0].ActionType)
	assert.Equal(t, "user-1", recorder.entries[0].UserID)
}

/*
TestScreen_Fetch_InvalidJSON answers 400 for a broken body.
*/
func TestScreen_Fetch_InvalidJSON(t *testing.T) {
	service, _ := newService(&fakeSource{}, &fakeCache{})

	response := serve(orders.NewScreen(service), http.MethodPost, "/fetch", `{`)

	assert.Equal(t, http.StatusBadRequest, response.Code)
}

/*
TestScreen_Metrics parses the status list.
*/
func TestScreen_Metrics(t *testing.T) {
	cache := &fakeCache{totals: []orders.StatusTotal{{Status: "completed", Count: 5, Value: 1000}}}
	service, _ := newService(&fakeSource{}, cache)

	response := serve(orders.NewScreen(service), http.MethodGet,
		"/metrics?start_date=2026-03-01&end_date=2026-03-31&status=completed,%20failed", "")

	require.Equal(t, http.StatusOK, response.Code)

	var body struct {
		Data []orders.StatusTotal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))
	assert.Equal(t, []orders.StatusTotal{
		{Status: "completed", Count: 5, Value: 1000},
		{Status: "failed"},
	}, body.Data)
}
