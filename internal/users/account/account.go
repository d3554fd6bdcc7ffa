// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages dashboard user accounts and their profiles.

# Architecture

  - Entities: The [auth.Profile] is the shared read model; this package owns its writes.
  - Storage: users.account (credentials) and users.profile are written together.
  - Consumers: The admin console for user management, [auth.Manager] for profile reads.
*/
package account

import (
	"context"

	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Inputs & Filters

// NewUser is the data needed to enroll a user from the admin console.
type NewUser struct {
	Email    string
	FullName string
	Password string
	Role     sec.UserRole
}

// Changes is a partial profile update. Nil fields are left unchanged.
type Changes struct {
	FullName *string
	Role     *sec.UserRole
	IsActive *bool
}

// Filter narrows a user listing. Zero values mean "any".
type Filter struct {
	Role   sec.UserRole
	Active *bool
	Search string
}

// # Repository Contracts

// Repository defines the persistence contract for accounts and profiles.
type Repository interface {
	/*
		FindProfile retrieves a profile by user id.

		Returns:
		  - *auth.Profile: Loaded profile
		  - error: apperr.NotFound or storage failures
	*/
	FindProfile(ctx context.Context, userID string) (*auth.Profile, error)

	// List returns profiles matching filter, newest first.
	List(ctx context.Context, filter Filter) ([]auth.Profile, error)

	/*
		Create writes the credential row and the profile in one transaction.

		Parameters:
		  - profile: *auth.Profile (ID and timestamps already set)
		  - passwordHash: string (bcrypt)

		Returns:
		  - error: apperr.Conflict on a duplicate email, or storage failures
	*/
	Create(ctx context.Context, profile *auth.Profile, passwordHash string) error

	// Update writes the mutable profile fields (full name, role, active flag).
	Update(ctx context.Context, profile *auth.Profile) error

	// Delete removes the account. The profile and grants cascade.
	Delete(ctx context.Context, userID string) error
}

// # Field Identifiers

const (
	FieldEmail    = "email"
	FieldFullName = "full_name"
	FieldPassword = "password"
	FieldRole     = "role"
	FieldIsActive = "is_active"
)
