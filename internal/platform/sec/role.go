// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "strings"

// # User Roles

// UserRole represents the authorization tier granted to an account.
type UserRole string

const (
	// RoleAdmin implies access to every active module.
	RoleAdmin UserRole = "admin"

	// RoleManager is kept for accounts created before the two-tier model.
	// It is authorized exactly like [RoleUser].
	RoleManager UserRole = "manager"

	// RoleUser only reaches explicitly granted modules.
	RoleUser UserRole = "user"
)

// ParseRole maps a stored role name ("Admin", "manager", ...) to a [UserRole].
// Unknown names fall back to [RoleUser], the least privileged tier.
func ParseRole(name string) UserRole {
	switch UserRole(strings.ToLower(strings.TrimSpace(name))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleUser
	}
}

// IsAdmin reports whether the role carries universal module access.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Roles lists the assignable roles in display order.
func Roles() []UserRole {
	return []UserRole{RoleAdmin, RoleManager, RoleUser}
}
