// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Fakes

type fakeCredentials struct {
	passwords  map[string]string // email -> password
	ids        map[string]string // email -> user id
	forced     error
	signOutErr error
	signIns    int
	resetOwner string
}

func (f *fakeCredentials) SignIn(_ context.Context, email, password string) (*auth.Identity, error) {
	f.signIns++
	if f.forced != nil {
		return nil, f.forced
	}
	stored, ok := f.passwords[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	if stored != password {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.Identity{UserID: f.ids[email], Email: email}, nil
}

func (f *fakeCredentials) SignOut(context.Context, string) error { return f.signOutErr }

func (f *fakeCredentials) RequestPasswordReset(_ context.Context, email string) (*auth.ResetTicket, error) {
	id, ok := f.ids[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &auth.ResetTicket{UserID: id, Email: email, Token: "reset-token"}, nil
}

func (f *fakeCredentials) UpdatePassword(_ context.Context, token, _ string) (string, error) {
	if token != "reset-token" {
		return "", apperr.Unprocessable("Reset token is invalid or expired")
	}
	return f.resetOwner, nil
}

type fakeProfiles struct{ rows map[string]*auth.Profile }

func (f *fakeProfiles) FindProfile(_ context.Context, userID string) (*auth.Profile, error) {
	profile, ok := f.rows[userID]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	clone := *profile
	return &clone, nil
}

type fakeModules struct {
	catalog []module.Module
	grants  map[string][]module.Key
}

func (f *fakeModules) ListActive(context.Context) ([]module.Module, error) {
	return f.catalog, nil
}

func (f *fakeModules) ListGrantedModules(_ context.Context, userID string) ([]module.Module, error) {
	granted := map[module.Key]bool{}
	for _, key := range f.grants[userID] {
		granted[key] = true
	}
	var out []module.Module
	for _, m := range f.catalog {
		if granted[m.Key] {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeActivity struct{ entries []activity.Entry }

func (f *fakeActivity) Record(_ context.Context, entry activity.Entry) {
	f.entries = append(f.entries, entry)
}

func (f *fakeActivity) count(action activity.ActionType) int {
	n := 0
	for _, entry := range f.entries {
		if entry.ActionType == action {
			n++
		}
	}
	return n
}

type fakeTokens struct{}

func (fakeTokens) GenerateAccessToken(sessionID, _, _, _ string, _ time.Duration) (string, error) {
	return "token-" + sessionID, nil
}

type fakeNotifier struct{ tickets []*auth.ResetTicket }

func (f *fakeNotifier) NotifyReset(_ context.Context, ticket *auth.ResetTicket) error {
	f.tickets = append(f.tickets, ticket)
	return nil
}

// # Fixture

type fixture struct {
	manager     *auth.Manager
	credentials *fakeCredentials
	profiles    *fakeProfiles
	modules     *fakeModules
	sessions    *auth.MemorySessionStore
	limiter     *auth.MemoryLimiter
	clock       *fakeClock
	activity    *fakeActivity
	notifier    *fakeNotifier
}

func newFixture() *fixture {
	limiter, clock := newClockedLimiter()
	f := &fixture{
		credentials: &fakeCredentials{
			passwords: map[string]string{"u1@x.com": "secret-pass", "off@x.com": "secret-pass", "ghost@x.com": "secret-pass"},
			ids:       map[string]string{"u1@x.com": "u1", "off@x.com": "u2", "ghost@x.com": "u3"},
		},
		profiles: &fakeProfiles{rows: map[string]*auth.Profile{
			"u1": {ID: "u1", Email: "u1@x.com", Role: sec.RoleUser, IsActive: true},
			"u2": {ID: "u2", Email: "off@x.com", Role: sec.RoleUser, IsActive: false},
		}},
		sessions: auth.NewMemorySessionStore(time.Hour),
		limiter:  limiter,
		clock:    clock,
		activity: &fakeActivity{},
		notifier: &fakeNotifier{},
	}

	f.modules = &fakeModules{
		catalog: []module.Module{
			{Key: module.KeyOrderExtractor, Name: "Order Extractor", IsActive: true, DisplayOrder: 1},
			{Key: module.KeyStockPriceUpdater, Name: "Stock & Price", IsActive: true, DisplayOrder: 2},
			{Key: module.KeyMRPLabelGenerator, Name: "MRP Labels", IsActive: true, DisplayOrder: 5},
		},
		grants: map[string][]module.Key{"u1": {module.KeyOrderExtractor}},
	}

	f.manager = auth.NewManager(auth.Deps{
		Credentials: f.credentials,
		Profiles:    f.profiles,
		Modules:     f.modules,
		Sessions:    f.sessions,
		Limiter:     f.limiter,
		Activity:    f.activity,
		Tokens:      fakeTokens{},
		Notifier:    f.notifier,
	})
	return f
}

// # Tests

/*
TestManager_HybridPermissions verifies grant-only access for users and full
access after promotion to admin.
*/
func TestManager_HybridPermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, token, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "token-"+session.ID, token)
	assert.Equal(t, auth.StateAuthenticated, session.State)
	assert.Equal(t, 1, f.activity.count(activity.ActionLogin))

	assert.True(t, session.HasModuleAccess(module.KeyOrderExtractor))
	assert.False(t, session.HasModuleAccess(module.KeyMRPLabelGenerator))
	assert.False(t, session.HasModuleAccess(module.KeyAdminModules))
	assert.Equal(t, []module.Key{module.KeyOrderExtractor}, session.ModuleKeys())

	// Promotion reaches the live session
	f.profiles.rows["u1"].Role = sec.RoleAdmin
	require.NoError(t, f.manager.RefreshUser(ctx, "u1"))

	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasModuleAccess(module.KeyAdminModules))
	assert.True(t, stored.HasModuleAccess(module.KeyMRPLabelGenerator))
	assert.Len(t, stored.Modules, 3)
}

/*
TestManager_LoginFailures maps each credential failure to its fixed message.
*/
func TestManager_LoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		forced   error
		code     string
		message  string
	}{
		{"wrong_password", "u1@x.com", "nope", nil, apperr.CodeUnauthorized, fmt.Sprintf(auth.MsgInvalidCredentials, 4)},
		{"unknown_user", "who@x.com", "nope", nil, apperr.CodeUnauthorized, auth.MsgUserNotFound},
		{"unconfirmed", "u1@x.com", "secret-pass", auth.ErrEmailNotConfirmed, apperr.CodeUnauthorized, auth.MsgEmailNotConfirmed},
		{"provider_down", "u1@x.com", "secret-pass", errors.New("dial tcp: refused"), apperr.CodeServiceUnavailable, auth.MsgLoginFailed},
		{"inactive_profile", "off@x.com", "secret-pass", nil, apperr.CodeForbidden, auth.MsgProfileInactive},
		{"missing_profile", "ghost@x.com", "secret-pass", nil, apperr.CodeForbidden, auth.MsgProfileMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.credentials.forced = tt.forced

			session, _, err := f.manager.Login(context.Background(), tt.email, tt.password)
			assert.Nil(t, session)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Zero(t, f.activity.count(activity.ActionLogin))
		})
	}
}

/*
TestManager_ProfileRejectionDoesNotCount verifies profile failures leave the limiter untouched.
*/
func TestManager_ProfileRejectionDoesNotCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for range 6 {
		_, _, err := f.manager.Login(ctx, "off@x.com", "secret-pass")
		assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
	}

	remaining, err := f.limiter.RemainingAttempts(ctx, "off@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

/*
TestManager_Lockout verifies the countdown, the lock on the fifth failure and
that a locked email never reaches the credential store.
*/
func TestManager_Lockout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for attempt := 1; attempt <= 4; attempt++ {
		_, _, err := f.manager.Login(ctx, "u1@x.com", "wrong")
		assert.Equal(t, fmt.Sprintf(auth.MsgInvalidCredentials, 5-attempt), err.Error())
	}

	_, _, err := f.manager.Login(ctx, "u1@x.com", "wrong")
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeRateLimited, appErr.Code)
	assert.Contains(t, appErr.Message, "Account locked for")
	assert.Equal(t, 5, f.credentials.signIns)

	// Even the right password is refused without a credential check
	_, _, err = f.manager.Login(ctx, "U1@x.com", "secret-pass")
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimited))
	assert.Equal(t, 5, f.credentials.signIns)
}

/*
TestManager_Logout verifies cleanup when provider sign-out fails and idempotency.
*/
func TestManager_Logout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.credentials.signOutErr = errors.New("provider unavailable")

	session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)
	id := session.ID

	require.NoError(t, f.manager.Logout(ctx, session))
	assert.Equal(t, auth.StateAnonymous, session.State)
	assert.Empty(t, session.Modules)
	assert.Equal(t, 1, f.activity.count(activity.ActionLogout))

	_, err = f.sessions.Get(ctx, id)
	assert.True(t, apperr.IsNotFound(err))

	// A second logout on the cleared session does nothing
	require.NoError(t, f.manager.Logout(ctx, session))
	assert.Equal(t, 1, f.activity.count(activity.ActionLogout))
}

/*
TestManager_RefreshDeactivated verifies that deactivation terminates the session.
*/
func TestManager_RefreshDeactivated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)
	id := session.ID

	f.profiles.rows["u1"].IsActive = false

	err = f.manager.RefreshPermissions(ctx, session)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.False(t, session.IsAuthenticated())

	_, err = f.sessions.Get(ctx, id)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestManager_SelectModule verifies the guard and the module_access entry.
*/
func TestManager_SelectModule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)

	err = f.manager.SelectModule(ctx, session, module.KeyMRPLabelGenerator)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
	assert.Empty(t, session.CurrentModule)

	require.NoError(t, f.manager.SelectModule(ctx, session, module.KeyOrderExtractor))
	assert.Equal(t, module.KeyOrderExtractor, session.CurrentModule)
	assert.Equal(t, 1, f.activity.count(activity.ActionModuleAccess))

	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, module.KeyOrderExtractor, stored.CurrentModule)
}

/*
TestManager_PasswordReset verifies anti-enumeration and session termination.
*/
func TestManager_PasswordReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.manager.RequestPasswordReset(ctx, "nobody@x.com"))
	assert.Empty(t, f.notifier.tickets)

	require.NoError(t, f.manager.RequestPasswordReset(ctx, "u1@x.com"))
	require.Len(t, f.notifier.tickets, 1)
	assert.Equal(t, "u1", f.notifier.tickets[0].UserID)

	session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)

	f.credentials.resetOwner = "u1"
	err = f.manager.UpdatePassword(ctx, "bad-token", "new-secret-pass")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnprocessable))

	require.NoError(t, f.manager.UpdatePassword(ctx, "reset-token", "new-secret-pass"))
	_, err = f.sessions.Get(ctx, session.ID)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestManager_RevokeGrant verifies that a revoked grant disappears from live
sessions on refresh, together with the current module it named.
*/
func TestManager_RevokeGrant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	require.NoError(t, err)
	require.NoError(t, f.manager.SelectModule(ctx, session, module.KeyOrderExtractor))

	f.modules.grants["u1"] = nil
	require.NoError(t, f.manager.RefreshUser(ctx, "u1"))

	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasModuleAccess(module.KeyOrderExtractor))
	assert.Empty(t, stored.CurrentModule)

	// The handle held by the request sees the same result after its own refresh
	require.NoError(t, f.manager.RefreshPermissions(ctx, session))
	assert.False(t, session.HasModuleAccess(module.KeyOrderExtractor))
}

/*
TestManager_LockoutExpiry verifies the lock length and that the right password
after expiry logs in and restores the full attempt budget.
*/
func TestManager_LockoutExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for range 4 {
		f.clock.advance(10 * time.Second)
		_, _, err := f.manager.Login(ctx, "a@x.com", "wrong")
		require.Error(t, err)
	}
	remaining, err := f.limiter.RemainingAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, _, err = f.manager.Login(ctx, "a@x.com", "wrong")
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimited))

	locked, err := f.limiter.LockoutRemaining(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, locked)

	remaining, err = f.limiter.RemainingAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	f.clock.advance(301 * time.Second)
	f.credentials.passwords["a@x.com"] = "secret-pass"
	f.credentials.ids["a@x.com"] = "u1"

	session, _, err := f.manager.Login(ctx, "a@x.com", "secret-pass")
	require.NoError(t, err)
	assert.True(t, session.IsAuthenticated())

	remaining, err = f.limiter.RemainingAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

/*
TestManager_SpacedFailuresNeverLock verifies that failures further apart than
the window each start a new count.
*/
func TestManager_SpacedFailuresNeverLock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for range 6 {
		_, _, err := f.manager.Login(ctx, "u1@x.com", "wrong")
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
		assert.Equal(t, fmt.Sprintf(auth.MsgInvalidCredentials, 4), appErr.Message)

		f.clock.advance(301 * time.Second)
	}

	assert.Equal(t, 6, f.credentials.signIns)
	_, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
	assert.NoError(t, err)
}

/*
TestManager_StaleSessionStaysDeleted verifies that a copy of a session taken
before it ended cannot write it back.
*/
func TestManager_StaleSessionStaysDeleted(t *testing.T) {
	tests := []struct {
		name string
		end  func(f *fixture, session *auth.Session) error
		use  func(f *fixture, stale *auth.Session) error
	}{
		{
			"select_after_logout",
			func(f *fixture, session *auth.Session) error { return f.manager.Logout(context.Background(), session) },
			func(f *fixture, stale *auth.Session) error {
				return f.manager.SelectModule(context.Background(), stale, module.KeyOrderExtractor)
			},
		},
		{
			"refresh_after_logout",
			func(f *fixture, session *auth.Session) error { return f.manager.Logout(context.Background(), session) },
			func(f *fixture, stale *auth.Session) error { return f.manager.RefreshPermissions(context.Background(), stale) },
		},
		{
			"refresh_after_termination",
			func(f *fixture, session *auth.Session) error {
				return f.manager.TerminateUser(context.Background(), session.User.UserID)
			},
			func(f *fixture, stale *auth.Session) error { return f.manager.RefreshPermissions(context.Background(), stale) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			session, _, err := f.manager.Login(ctx, "u1@x.com", "secret-pass")
			require.NoError(t, err)
			id := session.ID

			stale, err := f.sessions.Get(ctx, id)
			require.NoError(t, err)

			require.NoError(t, tt.end(f, session))

			err = tt.use(f, stale)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
			assert.False(t, stale.IsAuthenticated())

			_, err = f.sessions.Get(ctx, id)
			assert.True(t, apperr.IsNotFound(err))
			assert.Zero(t, f.activity.count(activity.ActionModuleAccess))
		})
	}
}
