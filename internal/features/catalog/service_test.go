// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/auth"
	"github.com/taibuivan/opsdash/pkg/pointer"
)

// # Fakes

type fakeRepository struct {
	catalog.Repository

	products []catalog.Product
	inserted []catalog.Product
	kept     []int64
	created  *catalog.Product
}

func (f *fakeRepository) List(_ context.Context, filter catalog.Filter) ([]catalog.Product, int, error) {
	return f.products, len(f.products), nil
}

func (f *fakeRepository) Find(_ context.Context, ref catalog.Ref) (*catalog.Product, error) {
	for _, product := range f.products {
		if product.Ref() == ref {
			return &product, nil
		}
	}
	if f.created != nil && f.created.Ref() == ref {
		return f.created, nil
	}
	return nil, apperr.NotFound("Product")
}

func (f *fakeRepository) Create(_ context.Context, product *catalog.Product) error {
	f.created = product
	return nil
}

func (f *fakeRepository) InsertMissing(_ context.Context, products []catalog.Product, _ string) (int, error) {
	f.inserted = products
	return len(products) - 1, nil
}

func (f *fakeRepository) DeactivateMissing(_ context.Context, keep []int64, _ string) (int64, error) {
	f.kept = keep
	return 2, nil
}

type fakeSource struct {
	products []woo.Product
	err      error
}

func (f *fakeSource) ListProducts(_ context.Context, limit int) ([]woo.Product, error) {
	return f.products, f.err
}

type fakeRecorder struct{ entries []activity.Entry }

func (f *fakeRecorder) Record(_ context.Context, entry activity.Entry) {
	f.entries = append(f.entries, entry)
}

func serve(t *testing.T, screen *catalog.Screen, role sec.UserRole, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	request := httptest.NewRequest(method, target, &payload)
	request = request.WithContext(auth.WithSession(request.Context(), &auth.Session{
		State:   auth.StateAuthenticated,
		User:    auth.Identity{UserID: "user-1"},
		Profile: &auth.Profile{ID: "user-1", Role: role, IsActive: true},
	}))
	response := httptest.NewRecorder()
	screen.Routes().ServeHTTP(response, request)
	return response
}

// # Service

/*
TestSync converts store products and marks the rest inactive.
*/
func TestSync(t *testing.T) {
	repository := &fakeRepository{}
	recorder := &fakeRecorder{}
	source := &fakeSource{products: []woo.Product{
		{ID: 7, Name: "Green Tea", Type: "simple", RegularPrice: "240.00", StockQuantity: pointer.To(12),
			Categories: []woo.Category{{Name: "Tea"}, {Name: "Organic"}}},
		{ID: 8, Name: "Gift Box", Type: "variable"},
		{ID: 9, Name: "Honey", Type: "variable", Status: "draft", Variations: []int64{91, 92}},
	}}
	service := catalog.NewService(repository, source, recorder)

	result, err := service.Sync(context.Background(), "admin-1")

	require.NoError(t, err)
	assert.Equal(t, catalog.SyncResult{Fetched: 3, Added: 1, Skipped: 1, Inactive: 2}, *result)
	assert.Equal(t, []int64{7, 9}, repository.kept)

	require.Len(t, repository.inserted, 2)
	tea, honey := repository.inserted[0], repository.inserted[1]
	assert.Equal(t, "publish", tea.Status)
	assert.Equal(t, "Tea, Organic", tea.Categories)
	assert.Equal(t, 240.0, tea.Regular())
	assert.Equal(t, 12, tea.Stock())
	assert.Equal(t, "draft", honey.Status)
	assert.Nil(t, honey.RegularPrice)
	assert.Equal(t, int64(0), honey.VariationID)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, activity.ActionSync, recorder.entries[0].ActionType)
}

/*
TestSync_UpstreamFailure leaves the catalog alone when the store fails.
*/
func TestSync_UpstreamFailure(t *testing.T) {
	repository := &fakeRepository{}
	service := catalog.NewService(repository, &fakeSource{err: errors.New("timeout")}, &fakeRecorder{})

	_, err := service.Sync(context.Background(), "admin-1")

	assert.True(t, apperr.HasCode(err, apperr.CodeBadGateway))
	assert.Nil(t, repository.inserted)
}

/*
TestAdd_Validation rejects incomplete or negative input.
*/
func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input catalog.CreateInput
	}{
		{"missing_id", catalog.CreateInput{Name: "Green Tea"}},
		{"missing_name", catalog.CreateInput{ProductID: 7, Name: "  "}},
		{"bad_status", catalog.CreateInput{ProductID: 7, Name: "Green Tea", Status: "archived"}},
		{"negative_stock", catalog.CreateInput{ProductID: 7, Name: "Green Tea", StockQuantity: pointer.To(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repository := &fakeRepository{}
			service := catalog.NewService(repository, &fakeSource{}, &fakeRecorder{})

			_, err := service.Add(context.Background(), "admin-1", tt.input)

			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			assert.Nil(t, repository.created)
		})
	}
}

/*
TestAdd defaults the status and returns the stored row.
*/
func TestAdd(t *testing.T) {
	repository := &fakeRepository{}
	service := catalog.NewService(repository, &fakeSource{}, &fakeRecorder{})

	product, err := service.Add(context.Background(), "admin-1", catalog.CreateInput{ProductID: 7, Name: " Green Tea "})

	require.NoError(t, err)
	assert.Equal(t, "Green Tea", product.Name)
	assert.Equal(t, catalog.DefaultStatus, product.Status)
	assert.True(t, product.IsActive)
	assert.Equal(t, "admin-1", product.UpdatedBy)
}

/*
TestBulkUpdate_Validation needs rows and a non-empty patch.
*/
func TestBulkUpdate_Validation(t *testing.T) {
	service := catalog.NewService(&fakeRepository{}, &fakeSource{}, &fakeRecorder{})

	_, err := service.BulkUpdate(context.Background(), "admin-1", catalog.BulkInput{Patch: catalog.Patch{IsActive: pointer.To(false)}})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = service.BulkUpdate(context.Background(), "admin-1", catalog.BulkInput{Refs: []catalog.Ref{{ProductID: 7}}})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

// # HTTP

/*
TestScreen_List wraps the page in the pagination envelope.
*/
func TestScreen_List(t *testing.T) {
	repository := &fakeRepository{products: []catalog.Product{{ProductID: 7, Name: "Green Tea"}}}
	screen := catalog.NewScreen(catalog.NewService(repository, &fakeSource{}, &fakeRecorder{}))

	response := serve(t, screen, sec.RoleUser, http.MethodGet, "/?page=1&limit=10", nil)

	require.Equal(t, http.StatusOK, response.Code)
	var body struct {
		Data []catalog.Product `json:"data"`
		Meta struct {
			Total int `json:"total"`
			Limit int `json:"limit"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 1, body.Meta.Total)
	assert.Equal(t, 10, body.Meta.Limit)
}

/*
TestScreen_Create_RequiresAdmin keeps catalog writes to admins.
*/
func TestScreen_Create_RequiresAdmin(t *testing.T) {
	tests := []struct {
		name   string
		role   sec.UserRole
		status int
	}{
		{"user", sec.RoleUser, http.StatusForbidden},
		{"manager", sec.RoleManager, http.StatusForbidden},
		{"admin", sec.RoleAdmin, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := catalog.NewScreen(catalog.NewService(&fakeRepository{}, &fakeSource{}, &fakeRecorder{}))

			response := serve(t, screen, tt.role, http.MethodPost, "/", catalog.CreateInput{ProductID: 7, Name: "Green Tea"})

			assert.Equal(t, tt.status, response.Code)
		})
	}
}

/*
TestScreen_Get_InvalidRef rejects non-numeric path ids.
*/
func TestScreen_Get_InvalidRef(t *testing.T) {
	screen := catalog.NewScreen(catalog.NewService(&fakeRepository{}, &fakeSource{}, &fakeRecorder{}))

	response := serve(t, screen, sec.RoleUser, http.MethodGet, "/abc/0", nil)

	assert.Equal(t, http.StatusBadRequest, response.Code)
}
