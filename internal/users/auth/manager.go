// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
	"github.com/taibuivan/opsdash/pkg/uuid"
)

// # Contracts & Types

// ProfileReader loads application profiles. A missing profile is NOT_FOUND.
type ProfileReader interface {
	FindProfile(ctx context.Context, userID string) (*Profile, error)
}

// ModuleSource resolves module sets. Both lists hold active modules only.
type ModuleSource interface {
	ListActive(ctx context.Context) ([]module.Module, error)
	ListGrantedModules(ctx context.Context, userID string) ([]module.Module, error)
}

// ActivityRecorder appends audit entries. It never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// TokenIssuer signs access tokens bound to a session id.
type TokenIssuer interface {
	GenerateAccessToken(sessionID, userID, email, role string, timeToLive time.Duration) (string, error)
}

// Deps groups the collaborators of a [Manager].
type Deps struct {
	Credentials CredentialStore
	Profiles    ProfileReader
	Modules     ModuleSource
	Sessions    SessionStore
	Limiter     Limiter
	Activity    ActivityRecorder
	Tokens      TokenIssuer
	Notifier    ResetNotifier
	Metrics     *metrics.Metrics
}

// Manager runs the session lifecycle: login, logout, refresh and module selection.
type Manager struct {
	credentials CredentialStore
	profiles    ProfileReader
	modules     ModuleSource
	sessions    SessionStore
	limiter     Limiter
	activity    ActivityRecorder
	tokens      TokenIssuer
	notifier    ResetNotifier
	metrics     *metrics.Metrics
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewManager constructs a [Manager] issuing tokens valid for [constants.AccessTokenTTL].
func NewManager(deps Deps) *Manager {
	return &Manager{
		credentials: deps.Credentials,
		profiles:    deps.Profiles,
		modules:     deps.Modules,
		sessions:    deps.Sessions,
		limiter:     deps.Limiter,
		activity:    deps.Activity,
		tokens:      deps.Tokens,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		tokenTTL:    constants.AccessTokenTTL,
		now:         time.Now,
	}
}

// TokenTTL is the lifetime of issued access tokens.
func (manager *Manager) TokenTTL() time.Duration {
	return manager.tokenTTL
}

// # Login Flow

/*
Login authenticates email and password and opens a session.

Description: A locked-out email is refused before the credential store is
contacted. Credential failures count towards the lockout; profile problems
(missing or deactivated) do not.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *Session: The authenticated session, already persisted
  - string: Signed access token carrying the session id
  - error: RATE_LIMITED, UNAUTHORIZED or FORBIDDEN with a user-facing message
*/
func (manager *Manager) Login(ctx context.Context, email, password string) (*Session, string, error) {
	email = strings.TrimSpace(email)

	// 1. Lockout check
	denial, err := manager.lockoutDenial(ctx, email)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	if denial != nil {
		manager.metrics.LoginAttempt(metrics.LoginLocked)
		return nil, "", denial
	}

	session := &Session{ID: uuid.New(), State: StateAuthenticating}

	// 2. Credential verification
	identity, err := manager.credentials.SignIn(ctx, email, password)
	if err != nil {
		return nil, "", manager.rejectCredentials(ctx, email, err)
	}

	// 3. Profile gate
	profile, err := manager.profiles.FindProfile(ctx, identity.UserID)
	switch {
	case apperr.IsNotFound(err):
		manager.metrics.LoginAttempt(metrics.LoginRejected)
		return nil, "", apperr.Forbidden(MsgProfileMissing)
	case err != nil:
		return nil, "", apperr.Internal(err)
	case !profile.IsActive:
		manager.metrics.LoginAttempt(metrics.LoginRejected)
		return nil, "", apperr.Forbidden(MsgProfileInactive)
	}

	// 4. Success
	if err := manager.limiter.RecordSuccessfulLogin(ctx, email); err != nil {
		return nil, "", apperr.Internal(err)
	}

	modules, err := manager.loadAccessibleModules(ctx, identity.UserID, profile)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	now := manager.now()
	session.State = StateAuthenticated
	session.User = *identity
	session.Profile = profile
	session.Modules = modules
	session.CreatedAt = now
	session.RefreshedAt = now

	if err := manager.sessions.Save(ctx, session); err != nil {
		return nil, "", apperr.Internal(err)
	}

	manager.activity.Record(ctx, activity.Entry{
		UserID:      identity.UserID,
		ActionType:  activity.ActionLogin,
		Description: "User logged in",
		Metadata:    map[string]any{"modules": len(modules)},
		Success:     true,
	})

	token, err := manager.tokens.GenerateAccessToken(session.ID, identity.UserID, identity.Email, string(profile.Role), manager.tokenTTL)
	if err != nil {
		_ = manager.sessions.Delete(ctx, session.ID)
		return nil, "", apperr.Internal(err)
	}

	manager.metrics.LoginAttempt(metrics.LoginSuccess)
	ctxutil.GetLogger(ctx).Info("login_succeeded", slog.String("user_id", identity.UserID))

	return session, token, nil
}

// lockoutDenial returns a RATE_LIMITED denial while email is locked.
func (manager *Manager) lockoutDenial(ctx context.Context, email string) (*apperr.AppError, error) {
	locked, err := manager.limiter.IsLockedOut(ctx, email)
	if err != nil || !locked {
		return nil, err
	}

	remaining, err := manager.limiter.LockoutRemaining(ctx, email)
	if err != nil {
		return nil, err
	}
	return apperr.Locked(LockoutMessage(remaining), int(remaining/time.Second)), nil
}

// rejectCredentials counts the failure and maps err to its fixed message.
// The provider error itself is logged only.
func (manager *Manager) rejectCredentials(ctx context.Context, email string, err error) error {
	ctxutil.GetLogger(ctx).Warn("login_failed", slog.String("email", LimiterKey(email)), slog.Any("error", err))

	if recordErr := manager.limiter.RecordFailedAttempt(ctx, email); recordErr != nil {
		return apperr.Internal(recordErr)
	}

	// The failure that crossed the threshold reports the lockout itself
	denial, lockErr := manager.lockoutDenial(ctx, email)
	if lockErr != nil {
		return apperr.Internal(lockErr)
	}
	if denial != nil {
		manager.metrics.LoginAttempt(metrics.LoginLocked)
		return denial
	}

	manager.metrics.LoginAttempt(metrics.LoginFailed)

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		remaining, remErr := manager.limiter.RemainingAttempts(ctx, email)
		if remErr != nil {
			return apperr.Internal(remErr)
		}
		return apperr.Unauthorized(fmt.Sprintf(MsgInvalidCredentials, remaining))
	case errors.Is(err, ErrEmailNotConfirmed):
		return apperr.Unauthorized(MsgEmailNotConfirmed)
	case errors.Is(err, ErrUserNotFound):
		return apperr.Unauthorized(MsgUserNotFound)
	default:
		return apperr.ServiceUnavailable(MsgLoginFailed).WithCause(err)
	}
}

// # Session Lifecycle

/*
Logout terminates s.

Description: The audit entry and the provider sign-out are best-effort. The
session is deleted from the store and cleared regardless, so calling Logout on
an anonymous session is a no-op.
*/
func (manager *Manager) Logout(ctx context.Context, s *Session) error {
	if s == nil || s.State == StateAnonymous {
		return nil
	}

	logger := ctxutil.GetLogger(ctx)
	s.State = StateTerminated

	if s.User.UserID != "" {
		manager.activity.Record(ctx, activity.Entry{
			UserID:      s.User.UserID,
			ActionType:  activity.ActionLogout,
			Description: "User logged out",
			Success:     true,
		})

		if err := manager.credentials.SignOut(ctx, s.User.UserID); err != nil {
			logger.Warn("provider_sign_out_failed", slog.String("user_id", s.User.UserID), slog.Any("error", err))
		}
	}

	err := manager.sessions.Delete(ctx, s.ID)
	s.Clear()

	if err != nil {
		return fmt.Errorf("auth_logout_failed: %w", err)
	}
	return nil
}

// loadAccessibleModules resolves the module set of a user.
// Admins get the active catalog, everyone else their explicit grants.
func (manager *Manager) loadAccessibleModules(ctx context.Context, userID string, profile *Profile) ([]module.Module, error) {
	if profile.Role.IsAdmin() {
		return manager.modules.ListActive(ctx)
	}
	return manager.modules.ListGrantedModules(ctx, userID)
}

/*
RefreshPermissions re-reads the profile and module set behind s and persists it.

Description: Role changes and new grants take effect immediately. A profile that
was removed or deactivated terminates the session and returns UNAUTHORIZED, and
so does a session that was deleted while s was held.
*/
func (manager *Manager) RefreshPermissions(ctx context.Context, s *Session) error {
	if denial := RequireLogin(s); denial != nil {
		return denial
	}

	profile, err := manager.profiles.FindProfile(ctx, s.User.UserID)
	if err != nil && !apperr.IsNotFound(err) {
		return fmt.Errorf("auth_refresh_failed: %w", err)
	}

	if profile == nil || !profile.IsActive {
		if err := manager.sessions.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("auth_refresh_failed: %w", err)
		}
		s.Clear()
		return apperr.Unauthorized(MsgProfileInactive)
	}

	modules, err := manager.loadAccessibleModules(ctx, s.User.UserID, profile)
	if err != nil {
		return fmt.Errorf("auth_refresh_failed: %w", err)
	}

	s.Profile = profile
	s.Modules = modules
	s.RefreshedAt = manager.now()

	// A current module the user lost is no longer current
	if s.CurrentModule != "" && !s.HasModuleAccess(s.CurrentModule) {
		s.CurrentModule = ""
	}

	if err := manager.sessions.Update(ctx, s); err != nil {
		if apperr.IsNotFound(err) {
			s.Clear()
			return apperr.Unauthorized(MsgAuthRequired)
		}
		return fmt.Errorf("auth_refresh_failed: %w", err)
	}
	return nil
}

// RefreshUser refreshes every live session of userID. Terminated sessions are not errors.
func (manager *Manager) RefreshUser(ctx context.Context, userID string) error {
	sessions, err := manager.sessions.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth_refresh_user_failed: %w", err)
	}

	var errs []error
	for _, session := range sessions {
		err := manager.RefreshPermissions(ctx, session)
		if err != nil && !apperr.HasCode(err, apperr.CodeUnauthorized) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TerminateUser deletes every live session of userID.
func (manager *Manager) TerminateUser(ctx context.Context, userID string) error {
	sessions, err := manager.sessions.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth_terminate_user_failed: %w", err)
	}

	var errs []error
	for _, session := range sessions {
		if err := manager.sessions.Delete(ctx, session.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelectModule makes key the current module of s after the module guard passed.
func (manager *Manager) SelectModule(ctx context.Context, s *Session, key module.Key) error {
	if denial := RequireModuleAccess(s, key); denial != nil {
		return denial
	}

	s.CurrentModule = key
	if err := manager.sessions.Update(ctx, s); err != nil {
		if apperr.IsNotFound(err) {
			s.Clear()
			return apperr.Unauthorized(MsgAuthRequired)
		}
		return fmt.Errorf("auth_select_module_failed: %w", err)
	}

	manager.activity.Record(ctx, activity.Entry{
		UserID:      s.User.UserID,
		ActionType:  activity.ActionModuleAccess,
		ModuleKey:   string(key),
		Description: "Opened module " + string(key),
		Success:     true,
	})
	return nil
}

// # Password Recovery

// RequestPasswordReset issues a reset token for email. It reports success for
// unknown emails as well, so callers cannot learn which accounts exist.
func (manager *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	ticket, err := manager.credentials.RequestPasswordReset(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		ctxutil.GetLogger(ctx).Info("password_reset_unknown_email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth_request_reset_failed: %w", err)
	}

	if err := manager.notifier.NotifyReset(ctx, ticket); err != nil {
		return fmt.Errorf("auth_request_reset_failed: %w", err)
	}
	return nil
}

// UpdatePassword consumes a reset token and signs the owner out everywhere.
func (manager *Manager) UpdatePassword(ctx context.Context, token, newPassword string) error {
	userID, err := manager.credentials.UpdatePassword(ctx, token, newPassword)
	if err != nil {
		return err
	}

	if err := manager.TerminateUser(ctx, userID); err != nil {
		ctxutil.GetLogger(ctx).Warn("session_termination_failed", slog.String("user_id", userID), slog.Any("error", err))
	}
	return nil
}
