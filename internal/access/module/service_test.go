// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package module_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
)

// fakeCatalog is an in-memory CatalogRepository.
type fakeCatalog struct {
	rows map[module.Key]*module.Module
}

func newFakeCatalog(modules ...module.Module) *fakeCatalog {
	c := &fakeCatalog{rows: map[module.Key]*module.Module{}}
	for i := range modules {
		c.rows[modules[i].Key] = &modules[i]
	}
	return c
}

func (c *fakeCatalog) ListActive(context.Context) ([]module.Module, error) {
	var out []module.Module
	for _, m := range c.rows {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListAll(context.Context) ([]module.Module, error) {
	var out []module.Module
	for _, m := range c.rows {
		out = append(out, *m)
	}
	return out, nil
}

func (c *fakeCatalog) FindByKey(_ context.Context, key module.Key) (*module.Module, error) {
	m, ok := c.rows[key]
	if !ok {
		return nil, apperr.NotFound("Module")
	}
	clone := *m
	return &clone, nil
}

func (c *fakeCatalog) Create(_ context.Context, m *module.Module) error {
	if _, ok := c.rows[m.Key]; ok {
		return apperr.Conflict("Module already exists")
	}
	clone := *m
	c.rows[m.Key] = &clone
	return nil
}

func (c *fakeCatalog) Update(_ context.Context, m *module.Module) error {
	clone := *m
	c.rows[m.Key] = &clone
	return nil
}

func (c *fakeCatalog) SetActive(_ context.Context, key module.Key, active bool) error {
	c.rows[key].IsActive = active
	return nil
}

func (c *fakeCatalog) Delete(_ context.Context, key module.Key) error {
	delete(c.rows, key)
	return nil
}

// fakeGrants records Replace calls.
type fakeGrants struct {
	replaced map[string][]module.Key
}

func (f *fakeGrants) ListGrantedModules(context.Context, string) ([]module.Module, error) {
	return nil, nil
}
func (f *fakeGrants) ListGrants(context.Context, string) ([]module.Grant, error) { return nil, nil }
func (f *fakeGrants) ListGrantees(context.Context, module.Key) ([]string, error) { return nil, nil }
func (f *fakeGrants) Replace(_ context.Context, userID string, keys []module.Key, _ string) error {
	f.replaced[userID] = keys
	return nil
}
func (f *fakeGrants) Grant(context.Context, string, module.Key, string) error { return nil }
func (f *fakeGrants) Revoke(context.Context, string, module.Key) error        { return nil }

func seededService() (*module.Service, *fakeCatalog, *fakeGrants) {
	catalog := newFakeCatalog(
		module.Module{Key: module.KeyOrderExtractor, Name: "Order Extractor", IsActive: true},
		module.Module{Key: module.KeyMRPLabelGenerator, Name: "MRP Labels", IsActive: true},
		module.Module{Key: module.KeyWooZohoExport, Name: "Zoho", IsActive: false},
	)
	grants := &fakeGrants{replaced: map[string][]module.Key{}}
	return module.NewService(catalog, grants), catalog, grants
}

/*
TestService_Create validates keys and applies defaults.
*/
func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   module.CreateInput
		wantErr string
	}{
		{"valid", module.CreateInput{Key: "returns_tracker", Name: "Returns"}, ""},
		{"uppercase_key", module.CreateInput{Key: "Returns", Name: "Returns"}, apperr.CodeValidation},
		{"dash_key", module.CreateInput{Key: "returns-tracker", Name: "Returns"}, apperr.CodeValidation},
		{"reserved_key", module.CreateInput{Key: "admin_users", Name: "Users"}, apperr.CodeValidation},
		{"missing_name", module.CreateInput{Key: "returns"}, apperr.CodeValidation},
		{"duplicate", module.CreateInput{Key: "order_extractor", Name: "Again"}, apperr.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := seededService()
			created, err := service.Create(context.Background(), tt.input)

			if tt.wantErr != "" {
				assert.True(t, apperr.HasCode(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, module.DefaultIcon, created.Icon)
			assert.Equal(t, module.DefaultDisplayOrder, created.DisplayOrder)
			assert.True(t, created.IsActive)
		})
	}
}

/*
TestService_ReplaceGrants rejects unknown and inactive keys and collapses duplicates.
*/
func TestService_ReplaceGrants(t *testing.T) {
	service, _, grants := seededService()
	ctx := context.Background()

	stored, err := service.ReplaceGrants(ctx, "u1", []string{"order_extractor", "order_extractor", "mrp_label_generator"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []module.Key{module.KeyOrderExtractor, module.KeyMRPLabelGenerator}, stored)
	assert.Equal(t, stored, grants.replaced["u1"])

	_, err = service.ReplaceGrants(ctx, "u2", []string{"woocommerce_zoho_export"}, "admin")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = service.ReplaceGrants(ctx, "u2", []string{"does_not_exist"}, "admin")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	assert.NotContains(t, grants.replaced, "u2")
}

/*
TestService_Update keeps the key and defaults untouched fields.
*/
func TestService_Update(t *testing.T) {
	service, catalog, _ := seededService()
	order := 7

	updated, err := service.Update(context.Background(), module.KeyOrderExtractor, module.UpdateInput{
		Name:         "Orders",
		DisplayOrder: &order,
	})

	require.NoError(t, err)
	assert.Equal(t, module.KeyOrderExtractor, updated.Key)
	assert.Equal(t, "Orders", catalog.rows[module.KeyOrderExtractor].Name)
	assert.Equal(t, 7, catalog.rows[module.KeyOrderExtractor].DisplayOrder)
}

/*
TestKey_Classification covers the closed key enumeration.
*/
func TestKey_Classification(t *testing.T) {
	key, ok := module.ParseKey("shipping_label_generator")
	assert.True(t, ok)
	assert.Equal(t, module.KeyShippingLabelGenerator, key)
	assert.False(t, key.IsAdmin())

	_, ok = module.ParseKey("returns_tracker")
	assert.False(t, ok)

	assert.True(t, module.KeyAdminModules.IsAdmin())
	assert.True(t, module.Key("returns_tracker").WellFormed())
	assert.False(t, module.Key("Returns").WellFormed())
}
