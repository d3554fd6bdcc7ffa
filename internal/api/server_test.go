// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/api"
	"github.com/taibuivan/opsdash/internal/features/orders"
	"github.com/taibuivan/opsdash/internal/platform/config"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Fakes

type fakeVerifier struct{ tokens map[string]*sec.AuthClaims }

func (f *fakeVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	claims, ok := f.tokens[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

type fakeScreen struct{ key module.Key }

func (f fakeScreen) Key() module.Key { return f.key }

func (f fakeScreen) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(f.key))
	})
	return router
}

type fakeOverview struct{}

func (fakeOverview) Overview(context.Context) (*orders.Overview, error) {
	return &orders.Overview{Statuses: []orders.StatusTotal{{Status: "processing", Count: 3}}}, nil
}

func allScreens() []api.Screen {
	screens := make([]api.Screen, 0, len(module.Keys()))
	for _, key := range module.Keys() {
		screens = append(screens, fakeScreen{key: key})
	}
	return screens
}

type fixture struct {
	server   *api.Server
	sessions *auth.MemorySessionStore
	verifier *fakeVerifier
}

func newFixture(t *testing.T, screens []api.Screen) (*fixture, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := auth.NewMemorySessionStore(time.Hour)
	verifier := &fakeVerifier{tokens: map[string]*sec.AuthClaims{}}
	liveness, readiness := api.NewHealthHandlers(logger)

	server, err := api.NewServer(ctx, &config.Config{ServerPort: "0", Environment: "development"}, logger, verifier, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.New(),
		Sessions:  sessions,
		Auth:      auth.NewHandler(nil),
		Account:   account.NewHandler(nil, nil),
		Dashboard: api.NewDashboardHandler(fakeOverview{}),
		Screens:   screens,
	})
	return &fixture{server: server, sessions: sessions, verifier: verifier}, err
}

// signIn stores a session for role with the granted keys and returns its token.
func (f *fixture) signIn(t *testing.T, role sec.UserRole, granted ...module.Key) string {
	t.Helper()
	id := "session-" + string(role)
	modules := make([]module.Module, 0, len(granted))
	for _, key := range granted {
		modules = append(modules, module.Module{Key: key, IsActive: true})
	}

	require.NoError(t, f.sessions.Save(context.Background(), &auth.Session{
		ID:      id,
		State:   auth.StateAuthenticated,
		User:    auth.Identity{UserID: "user-" + string(role)},
		Profile: &auth.Profile{ID: "user-" + string(role), Role: role, IsActive: true},
		Modules: modules,
	}))
	token := "token-" + string(role)
	f.verifier.tokens[token] = &sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: id},
		UserID:           "user-" + string(role),
		Role:             string(role),
	}
	return token
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(response, request)
	return response
}

// # Tests

/*
TestNewServer_Screens refuses a screen set that leaves a key unserved or
serves one twice.
*/
func TestNewServer_Screens(t *testing.T) {
	tests := []struct {
		name    string
		screens []api.Screen
		wantErr bool
	}{
		{"every key", allScreens(), false},
		{"missing key", allScreens()[1:], true},
		{"duplicate key", append(allScreens(), fakeScreen{key: module.KeyOrderExtractor}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixture(t, tt.screens)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestServer_ScreenGuards checks the admin guard on admin screens and the grant
guard on feature screens.
*/
func TestServer_ScreenGuards(t *testing.T) {
	f, err := newFixture(t, allScreens())
	require.NoError(t, err)

	user := f.signIn(t, sec.RoleUser, module.KeyOrderExtractor)
	manager := f.signIn(t, sec.RoleManager)
	admin := f.signIn(t, sec.RoleAdmin)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"anonymous feature", "/api/v1/modules/order_extractor", "", http.StatusUnauthorized},
		{"granted feature", "/api/v1/modules/order_extractor", user, http.StatusOK},
		{"ungranted feature", "/api/v1/modules/stock_price_updater", user, http.StatusForbidden},
		{"manager without grant", "/api/v1/modules/order_extractor", manager, http.StatusForbidden},
		{"user on admin screen", "/api/v1/modules/admin_users", user, http.StatusForbidden},
		{"admin on admin screen", "/api/v1/modules/admin_users", admin, http.StatusOK},
		{"admin on any feature", "/api/v1/modules/woocommerce_zoho_export", admin, http.StatusOK},
		{"unknown token", "/api/v1/modules/order_extractor", "forged", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.get(tt.path, tt.token).Code)
		})
	}
}

/*
TestServer_Dashboard shows the order block only to users who may open the
order extractor.
*/
func TestServer_Dashboard(t *testing.T) {
	f, err := newFixture(t, allScreens())
	require.NoError(t, err)

	decode := func(response *httptest.ResponseRecorder) map[string]any {
		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		return body.Data
	}

	granted := f.get("/api/v1/dashboard", f.signIn(t, sec.RoleUser, module.KeyOrderExtractor))
	require.Equal(t, http.StatusOK, granted.Code)
	assert.Contains(t, decode(granted), "orders")

	plain := f.get("/api/v1/dashboard", f.signIn(t, sec.RoleManager, module.KeyShippingLabelGenerator))
	require.Equal(t, http.StatusOK, plain.Code)
	assert.NotContains(t, decode(plain), "orders")

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/dashboard", "").Code)
}

/*
TestServer_HealthEndpoints serves the unauthenticated health, readiness and metrics endpoints.
*/
func TestServer_HealthEndpoints(t *testing.T) {
	f, err := newFixture(t, allScreens())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, f.get("/health", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/ready", "").Code)

	f.get("/health", "")
	scrape := f.get("/metrics", "")
	assert.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "http_requests_total")
}

/*
TestReadiness_Degraded answers 503 naming the failed dependency.
*/
func TestReadiness_Degraded(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, readiness := api.NewHealthHandlers(logger,
		api.Check{Name: "postgres", Ping: func(context.Context) error { return nil }},
		api.Check{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	)

	response := httptest.NewRecorder()
	readiness(response, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, response.Code)
	assert.Contains(t, response.Body.String(), `"status":"degraded"`)
	assert.Contains(t, response.Body.String(), "connection refused")
}
