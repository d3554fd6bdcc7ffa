// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/admin"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Fakes

type fakeAccounts struct {
	profiles map[string]*auth.Profile
	deleted  []string
}

func (f *fakeAccounts) FindProfile(_ context.Context, id string) (*auth.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	clone := *p
	return &clone, nil
}

func (f *fakeAccounts) List(_ context.Context, filter account.Filter) ([]auth.Profile, error) {
	out := make([]auth.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeAccounts) Create(_ context.Context, p *auth.Profile, _ string) error {
	clone := *p
	f.profiles[p.ID] = &clone
	return nil
}

func (f *fakeAccounts) Update(_ context.Context, p *auth.Profile) error {
	clone := *p
	f.profiles[p.ID] = &clone
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	delete(f.profiles, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeCatalog struct{ modules []module.Module }

func (f *fakeCatalog) ListActive(context.Context) ([]module.Module, error) {
	var out []module.Module
	for _, m := range f.modules {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListAll(context.Context) ([]module.Module, error) { return f.modules, nil }

func (f *fakeCatalog) FindByKey(_ context.Context, key module.Key) (*module.Module, error) {
	for _, m := range f.modules {
		if m.Key == key {
			clone := m
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Module")
}

func (f *fakeCatalog) Create(_ context.Context, m *module.Module) error {
	f.modules = append(f.modules, *m)
	return nil
}

func (f *fakeCatalog) Update(context.Context, *module.Module) error { return nil }

func (f *fakeCatalog) SetActive(_ context.Context, key module.Key, active bool) error {
	for i := range f.modules {
		if f.modules[i].Key == key {
			f.modules[i].IsActive = active
			return nil
		}
	}
	return apperr.NotFound("Module")
}

func (f *fakeCatalog) Delete(context.Context, module.Key) error { return nil }

type fakeGrants struct{ keys map[string][]module.Key }

func (f *fakeGrants) ListGrantedModules(context.Context, string) ([]module.Module, error) {
	return nil, nil
}

func (f *fakeGrants) ListGrantees(_ context.Context, key module.Key) ([]string, error) {
	var out []string
	for userID, keys := range f.keys {
		if slices.Contains(keys, key) {
			out = append(out, userID)
		}
	}
	return out, nil
}

func (f *fakeGrants) ListGrants(_ context.Context, userID string) ([]module.Grant, error) {
	var out []module.Grant
	for _, key := range f.keys[userID] {
		out = append(out, module.Grant{UserID: userID, ModuleKey: key})
	}
	return out, nil
}

func (f *fakeGrants) Replace(_ context.Context, userID string, keys []module.Key, _ string) error {
	f.keys[userID] = keys
	return nil
}

func (f *fakeGrants) Grant(_ context.Context, userID string, key module.Key, _ string) error {
	f.keys[userID] = append(f.keys[userID], key)
	return nil
}

func (f *fakeGrants) Revoke(context.Context, string, module.Key) error { return nil }

type fakeLogs struct{ entries []activity.Entry }

func (f *fakeLogs) Insert(_ context.Context, entry *activity.Entry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogs) List(_ context.Context, filter activity.Filter) ([]activity.Entry, error) {
	var out []activity.Entry
	for _, entry := range f.entries {
		if filter.ActionType != "" && entry.ActionType != filter.ActionType {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeLogs) Stats(_ context.Context, since time.Time) (*activity.Stats, error) {
	return &activity.Stats{Since: since, Total: len(f.entries)}, nil
}

type fakeSessions struct {
	refreshed  []string
	terminated []string
}

func (f *fakeSessions) RefreshUser(_ context.Context, userID string) error {
	f.refreshed = append(f.refreshed, userID)
	return nil
}

func (f *fakeSessions) TerminateUser(_ context.Context, userID string) error {
	f.terminated = append(f.terminated, userID)
	return nil
}

// # Fixture

type fixture struct {
	console  *admin.Console
	accounts *fakeAccounts
	grants   *fakeGrants
	logs     *fakeLogs
	sessions *fakeSessions
}

func newFixture() *fixture {
	f := &fixture{
		accounts: &fakeAccounts{profiles: map[string]*auth.Profile{
			"admin-1": {ID: "admin-1", Email: "admin@x.com", Role: sec.RoleAdmin, IsActive: true},
			"user-1":  {ID: "user-1", Email: "user@x.com", Role: sec.RoleUser, IsActive: true},
		}},
		grants:   &fakeGrants{keys: map[string][]module.Key{}},
		logs:     &fakeLogs{},
		sessions: &fakeSessions{},
	}
	catalog := &fakeCatalog{modules: []module.Module{
		{Key: module.KeyOrderExtractor, Name: "Order Extractor", IsActive: true},
		{Key: module.KeyWooZohoExport, Name: "Zoho Export", IsActive: false},
	}}
	f.console = admin.NewConsole(
		account.NewService(f.accounts),
		module.NewService(catalog, f.grants),
		activity.NewLogger(f.logs),
		f.sessions,
	)
	return f
}

// serve runs request through handler as the admin-1 session.
func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	session := &auth.Session{
		ID:      "s-admin",
		State:   auth.StateAuthenticated,
		User:    auth.Identity{UserID: "admin-1", Email: "admin@x.com"},
		Profile: &auth.Profile{ID: "admin-1", Role: sec.RoleAdmin, IsActive: true},
	}
	request = request.WithContext(auth.WithSession(request.Context(), session))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestPermissions_Replace stores the grants, audits the change and refreshes
the target user's sessions.
*/
func TestPermissions_Replace(t *testing.T) {
	f := newFixture()
	routes := f.console.Permissions().Routes()

	recorder := serve(routes, http.MethodPut, "/user-1", `{"module_keys":["order_extractor","order_extractor"]}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []module.Key{module.KeyOrderExtractor}, f.grants.keys["user-1"])
	assert.Equal(t, []string{"user-1"}, f.sessions.refreshed)

	require.Len(t, f.logs.entries, 1)
	entry := f.logs.entries[0]
	assert.Equal(t, activity.ActionAdmin, entry.ActionType)
	assert.Equal(t, "admin-1", entry.UserID)
	assert.Equal(t, string(module.KeyAdminPermissions), entry.ModuleKey)
}

/*
TestPermissions_RejectsInactive refuses keys that are not active catalog rows.
*/
func TestPermissions_RejectsInactive(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"inactive", `{"module_keys":["woocommerce_zoho_export"]}`},
		{"unknown", `{"module_keys":["does_not_exist"]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			recorder := serve(f.console.Permissions().Routes(), http.MethodPut, "/user-1", tc.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Empty(t, f.grants.keys["user-1"])
			assert.Empty(t, f.sessions.refreshed)
			assert.Empty(t, f.logs.entries)
		})
	}
}

/*
TestUsers_Delete refuses self deletion and terminates the sessions of others.
*/
func TestUsers_Delete(t *testing.T) {
	f := newFixture()
	routes := f.console.Users().Routes()

	recorder := serve(routes, http.MethodDelete, "/admin-1", "")
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Empty(t, f.accounts.deleted)

	recorder = serve(routes, http.MethodDelete, "/user-1", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, []string{"user-1"}, f.accounts.deleted)
	assert.Equal(t, []string{"user-1"}, f.sessions.terminated)
	require.Len(t, f.logs.entries, 1)
}

/*
TestUsers_Create defaults the role and audits the enrollment.
*/
func TestUsers_Create(t *testing.T) {
	f := newFixture()

	recorder := serve(f.console.Users().Routes(), http.MethodPost, "/",
		`{"email":"New@X.com","full_name":"New Person","password":"longenough"}`)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var body struct {
		Data auth.Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "new@x.com", body.Data.Email)
	assert.Equal(t, sec.RoleUser, body.Data.Role)
	require.Len(t, f.logs.entries, 1)
	assert.Contains(t, f.logs.entries[0].Description, "new@x.com")
}

/*
TestModules_SetActive requires the flag and audits the toggle.
*/
func TestModules_SetActive(t *testing.T) {
	f := newFixture()
	routes := f.console.Modules().Routes()

	recorder := serve(routes, http.MethodPut, "/order_extractor/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	assert.Empty(t, f.sessions.refreshed)

	recorder = serve(routes, http.MethodPut, "/order_extractor/active", `{"is_active":false}`)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	require.Len(t, f.logs.entries, 1)
}

/*
TestModules_SetActive_RefreshesHolders pushes a toggle into the sessions of
the module's grantees and of every admin, once each.
*/
func TestModules_SetActive_RefreshesHolders(t *testing.T) {
	f := newFixture()
	f.accounts.profiles["user-2"] = &auth.Profile{ID: "user-2", Role: sec.RoleUser, IsActive: true}
	f.grants.keys["user-1"] = []module.Key{module.KeyOrderExtractor}
	f.grants.keys["user-2"] = []module.Key{module.KeyWooZohoExport}

	recorder := serve(f.console.Modules().Routes(), http.MethodPut, "/order_extractor/active", `{"is_active":false}`)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, []string{"admin-1", "user-1"}, f.sessions.refreshed)
}

/*
TestLogs_Export downloads the filtered trail as a sanitized CSV.
*/
func TestLogs_Export(t *testing.T) {
	f := newFixture()
	f.logs.entries = []activity.Entry{
		{UserEmail: "a@x.com", ActionType: activity.ActionLogin, Description: "=HYPERLINK()", Success: true},
		{UserEmail: "b@x.com", ActionType: activity.ActionLogout, Description: "User logged out", Success: true},
	}

	recorder := serve(f.console.Logs().Routes(), http.MethodGet, "/export?action_type=login", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "activity_logs_")
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/csv")

	body := recorder.Body.String()
	assert.True(t, strings.HasPrefix(body, strings.Join(activity.ExportHeader, ",")))
	assert.Contains(t, body, "'=HYPERLINK()")
	assert.NotContains(t, body, "b@x.com")
}

/*
TestLogs_ListValidation bounds the limit and the action type.
*/
func TestLogs_ListValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"default", "/", http.StatusOK},
		{"max", "/?limit=1000", http.StatusOK},
		{"too_many", "/?limit=1001", http.StatusBadRequest},
		{"zero", "/?limit=0", http.StatusBadRequest},
		{"unknown_action", "/?action_type=purge", http.StatusBadRequest},
		{"bad_user", "/?user_id=nope", http.StatusBadRequest},
	}

	f := newFixture()
	routes := f.console.Logs().Routes()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, serve(routes, http.MethodGet, tc.target, "").Code)
		})
	}
}
