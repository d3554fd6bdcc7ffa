// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
	"github.com/taibuivan/opsdash/pkg/uuid"
)

// Service implements account management use cases.
type Service struct {
	repository Repository
	now        func() time.Time
}

// NewService constructs a new account [Service].
func NewService(repository Repository) *Service {
	return &Service{repository: repository, now: time.Now}
}

// FindProfile loads a profile. It satisfies [auth.ProfileReader].
func (service *Service) FindProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	return service.repository.FindProfile(ctx, userID)
}

// List returns the profiles matching filter.
func (service *Service) List(ctx context.Context, filter Filter) ([]auth.Profile, error) {
	return service.repository.List(ctx, filter)
}

/*
Create enrolls a new user with a hashed password.

Description: The email is lowercased and trimmed before storage. A role that is
not one of admin, manager or user fails validation.

Returns:
  - *auth.Profile: The created profile
  - error: VALIDATION_ERROR, CONFLICT on a duplicate email, or storage errors
*/
func (service *Service) Create(ctx context.Context, input NewUser) (*auth.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldFullName, fullName).
		MaxLen(FieldFullName, fullName, 200).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, auth.MinPasswordLength).
		Custom(FieldRole, !input.Role.Valid(), "must be one of admin, manager, user")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := service.now()
	profile := &auth.Profile{
		ID:        uuid.New(),
		Email:     email,
		FullName:  fullName,
		Role:      input.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := service.repository.Create(ctx, profile, hash); err != nil {
		return nil, err
	}
	return profile, nil
}

/*
Update applies changes to the profile of userID on behalf of actorID.

Description: An administrator may not demote or deactivate their own account.
*/
func (service *Service) Update(ctx context.Context, actorID, userID string, changes Changes) (*auth.Profile, error) {
	profile, err := service.repository.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if changes.FullName != nil {
		name := strings.TrimSpace(*changes.FullName)
		validator.Required(FieldFullName, name).MaxLen(FieldFullName, name, 200)
		profile.FullName = name
	}
	if changes.Role != nil {
		validator.Custom(FieldRole, !changes.Role.Valid(), "must be one of admin, manager, user").
			Custom(FieldRole, actorID == userID && !changes.Role.IsAdmin(), "you cannot change your own role")
		profile.Role = *changes.Role
	}
	if changes.IsActive != nil {
		validator.Custom(FieldIsActive, actorID == userID && !*changes.IsActive, "you cannot deactivate your own account")
		profile.IsActive = *changes.IsActive
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	profile.UpdatedAt = service.now()
	if err := service.repository.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Delete hard-deletes the account of userID. Deleting yourself is refused.
func (service *Service) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperr.Forbidden("You cannot delete your own account")
	}
	return service.repository.Delete(ctx, userID)
}
