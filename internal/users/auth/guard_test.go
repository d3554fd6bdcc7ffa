// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

func authenticated(role sec.UserRole, keys ...module.Key) *auth.Session {
	session := &auth.Session{
		ID:      "s1",
		State:   auth.StateAuthenticated,
		User:    auth.Identity{UserID: "u1", Email: "u1@x.com"},
		Profile: &auth.Profile{ID: "u1", Role: role, IsActive: true},
	}
	for _, key := range keys {
		session.Modules = append(session.Modules, module.Module{Key: key, IsActive: true})
	}
	return session
}

/*
TestGuards covers the three denials for each kind of session.
*/
func TestGuards(t *testing.T) {
	anonymous := &auth.Session{}
	user := authenticated(sec.RoleUser, module.KeyOrderExtractor)
	manager := authenticated(sec.RoleManager, module.KeyOrderExtractor)
	admin := authenticated(sec.RoleAdmin)

	tests := []struct {
		name    string
		denial  *apperr.AppError
		code    string
		message string
	}{
		{"login_anonymous", auth.RequireLogin(anonymous), apperr.CodeUnauthorized, auth.MsgAuthRequired},
		{"login_user", auth.RequireLogin(user), "", ""},
		{"admin_anonymous", auth.RequireAdmin(anonymous), apperr.CodeUnauthorized, auth.MsgAuthRequired},
		{"admin_user", auth.RequireAdmin(user), apperr.CodeForbidden, auth.MsgAdminRequired},
		{"admin_manager", auth.RequireAdmin(manager), apperr.CodeForbidden, auth.MsgAdminRequired},
		{"admin_admin", auth.RequireAdmin(admin), "", ""},
		{"module_granted", auth.RequireModuleAccess(user, module.KeyOrderExtractor), "", ""},
		{"module_not_granted", auth.RequireModuleAccess(user, module.KeyWooZohoExport), apperr.CodeForbidden, auth.MsgModuleRequired},
		{"module_manager_no_admin", auth.RequireModuleAccess(manager, module.KeyAdminLogs), apperr.CodeForbidden, auth.MsgModuleRequired},
		{"module_admin_any", auth.RequireModuleAccess(admin, module.KeyAdminModules), "", ""},
		{"module_anonymous", auth.RequireModuleAccess(anonymous, module.KeyOrderExtractor), apperr.CodeUnauthorized, auth.MsgAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code == "" {
				assert.Nil(t, tt.denial)
				return
			}
			require.NotNil(t, tt.denial)
			assert.Equal(t, tt.code, tt.denial.Code)
			assert.Equal(t, tt.message, tt.denial.Message)
		})
	}
}

/*
TestGuardMiddleware verifies that a denied request never enters the handler.
*/
func TestGuardMiddleware(t *testing.T) {
	entered := false
	handler := auth.ModuleRequired(module.KeyMRPLabelGenerator)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entered = true
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(auth.WithSession(request.Context(), authenticated(sec.RoleUser, module.KeyOrderExtractor)))
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), auth.MsgModuleRequired)
	assert.False(t, entered)
}

/*
TestLoadSession resolves the session named by the token and ignores stale ones.
*/
func TestLoadSession(t *testing.T) {
	store := auth.NewMemorySessionStore(time.Hour)
	require.NoError(t, store.Save(context.Background(), authenticated(sec.RoleUser)))

	tests := []struct {
		name      string
		claims    *sec.AuthClaims
		wantState auth.State
	}{
		{"no_token", nil, auth.StateAnonymous},
		{"live_session", &sec.AuthClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "s1"}, UserID: "u1"}, auth.StateAuthenticated},
		{"deleted_session", &sec.AuthClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "gone"}, UserID: "u1"}, auth.StateAnonymous},
		{"foreign_session", &sec.AuthClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "s1"}, UserID: "u9"}, auth.StateAnonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen auth.State
			handler := auth.LoadSession(store)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = auth.SessionFrom(r.Context()).State
			}))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), tt.claims))
			}
			handler.ServeHTTP(httptest.NewRecorder(), request)

			assert.Equal(t, tt.wantState, seen)
		})
	}
}
