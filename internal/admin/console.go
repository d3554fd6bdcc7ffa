// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin implements the four admin screens of the dashboard.

  - admin_users: Enrollment, role and status changes, deletion.
  - admin_permissions: Per-user module grants.
  - admin_modules: The module catalog.
  - admin_logs: The audit trail and its CSV export.

Routes are mounted behind the admin guard. Every mutation appends an
admin_action entry and pushes the change into the live sessions it affects.
*/
package admin

import (
	"context"
	"log/slog"
	"slices"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// SessionControl reaches the live sessions of a user.
type SessionControl interface {
	RefreshUser(ctx context.Context, userID string) error
	TerminateUser(ctx context.Context, userID string) error
}

// Console bundles the services behind the admin screens.
type Console struct {
	accounts *account.Service
	modules  *module.Service
	logs     *activity.Logger
	sessions SessionControl
}

// NewConsole constructs the admin [Console].
func NewConsole(accounts *account.Service, modules *module.Service, logs *activity.Logger, sessions SessionControl) *Console {
	return &Console{accounts: accounts, modules: modules, logs: logs, sessions: sessions}
}

// Users returns the admin_users screen.
func (console *Console) Users() *UsersScreen { return &UsersScreen{console: console} }

// Permissions returns the admin_permissions screen.
func (console *Console) Permissions() *PermissionsScreen {
	return &PermissionsScreen{console: console}
}

// Modules returns the admin_modules screen.
func (console *Console) Modules() *ModulesScreen { return &ModulesScreen{console: console} }

// Logs returns the admin_logs screen.
func (console *Console) Logs() *LogsScreen { return &LogsScreen{console: console} }

// audit appends an admin_action entry attributed to the acting admin.
func (console *Console) audit(ctx context.Context, screen module.Key, description string, metadata map[string]any) {
	console.logs.Record(ctx, activity.Entry{
		UserID:      auth.SessionFrom(ctx).User.UserID,
		ActionType:  activity.ActionAdmin,
		ModuleKey:   string(screen),
		Description: description,
		Metadata:    metadata,
		Success:     true,
	})
}

// refresh pushes a change into the sessions of userID. Failures are logged only:
// the change is stored and applies at the user's next refresh or login.
func (console *Console) refresh(ctx context.Context, userID string) {
	if err := console.sessions.RefreshUser(ctx, userID); err != nil {
		ctxutil.GetLogger(ctx).Warn("session_refresh_failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}

/*
refreshModuleHolders refreshes every user whose computed module set contains
key: its grantees and all admins. Lookup failures are logged and skipped.
*/
func (console *Console) refreshModuleHolders(ctx context.Context, key module.Key) {
	log := ctxutil.GetLogger(ctx)

	userIDs, err := console.modules.ListGrantees(ctx, key)
	if err != nil {
		log.Warn("module_grantees_lookup_failed", slog.String("module_key", string(key)), slog.Any("error", err))
	}

	admins, err := console.accounts.List(ctx, account.Filter{Role: sec.RoleAdmin})
	if err != nil {
		log.Warn("admin_lookup_failed", slog.Any("error", err))
	}
	for _, profile := range admins {
		userIDs = append(userIDs, profile.ID)
	}

	for _, userID := range slices.Compact(slices.Sorted(slices.Values(userIDs))) {
		console.refresh(ctx, userID)
	}
}

// actorID is the user id of the acting admin.
func actorID(ctx context.Context) string {
	return auth.SessionFrom(ctx).User.UserID
}
