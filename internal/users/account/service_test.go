// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// fakeRepository is an in-memory account.Repository.
type fakeRepository struct {
	profiles map[string]*auth.Profile
	hashes   map[string]string
	deleted  []string
}

func newFakeRepository(profiles ...auth.Profile) *fakeRepository {
	repo := &fakeRepository{profiles: map[string]*auth.Profile{}, hashes: map[string]string{}}
	for i := range profiles {
		repo.profiles[profiles[i].ID] = &profiles[i]
	}
	return repo
}

func (r *fakeRepository) FindProfile(_ context.Context, id string) (*auth.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepository) List(context.Context, account.Filter) ([]auth.Profile, error) {
	var out []auth.Profile
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRepository) Create(_ context.Context, p *auth.Profile, hash string) error {
	for _, existing := range r.profiles {
		if existing.Email == p.Email {
			return apperr.Conflict("User already exists")
		}
	}
	clone := *p
	r.profiles[p.ID] = &clone
	r.hashes[p.ID] = hash
	return nil
}

func (r *fakeRepository) Update(_ context.Context, p *auth.Profile) error {
	clone := *p
	r.profiles[p.ID] = &clone
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	delete(r.profiles, id)
	return nil
}

/*
TestService_Create validates the enrollment form and hashes the password.
*/
func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   account.NewUser
		wantErr string
	}{
		{"valid", account.NewUser{Email: " New@X.com ", FullName: "New User", Password: "long-enough", Role: sec.RoleUser}, ""},
		{"bad_email", account.NewUser{Email: "nope", FullName: "N", Password: "long-enough", Role: sec.RoleUser}, apperr.CodeValidation},
		{"short_password", account.NewUser{Email: "a@x.com", FullName: "N", Password: "short", Role: sec.RoleUser}, apperr.CodeValidation},
		{"unknown_role", account.NewUser{Email: "a@x.com", FullName: "N", Password: "long-enough", Role: "owner"}, apperr.CodeValidation},
		{"missing_name", account.NewUser{Email: "a@x.com", Password: "long-enough", Role: sec.RoleUser}, apperr.CodeValidation},
		{"duplicate", account.NewUser{Email: "admin@x.com", FullName: "Dup", Password: "long-enough", Role: sec.RoleUser}, apperr.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository(auth.Profile{ID: "a1", Email: "admin@x.com", Role: sec.RoleAdmin, IsActive: true})
			created, err := account.NewService(repo).Create(context.Background(), tt.input)

			if tt.wantErr != "" {
				assert.True(t, apperr.HasCode(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "new@x.com", created.Email)
			assert.True(t, created.IsActive)
			assert.True(t, sec.CheckPasswordHash("long-enough", repo.hashes[created.ID]))
		})
	}
}

/*
TestService_Update_SelfProtection refuses self demotion and self deactivation.
*/
func TestService_Update_SelfProtection(t *testing.T) {
	repo := newFakeRepository(
		auth.Profile{ID: "a1", Email: "admin@x.com", Role: sec.RoleAdmin, IsActive: true},
		auth.Profile{ID: "u1", Email: "u1@x.com", Role: sec.RoleUser, IsActive: true},
	)
	service := account.NewService(repo)
	ctx := context.Background()

	demote := sec.RoleUser
	_, err := service.Update(ctx, "a1", "a1", account.Changes{Role: &demote})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	inactive := false
	_, err = service.Update(ctx, "a1", "a1", account.Changes{IsActive: &inactive})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	promote := sec.RoleAdmin
	updated, err := service.Update(ctx, "a1", "u1", account.Changes{Role: &promote, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, updated.Role)
	assert.False(t, repo.profiles["u1"].IsActive)
}

/*
TestService_Delete refuses to delete the acting admin.
*/
func TestService_Delete(t *testing.T) {
	repo := newFakeRepository(auth.Profile{ID: "a1"}, auth.Profile{ID: "u1"})
	service := account.NewService(repo)

	err := service.Delete(context.Background(), "a1", "a1")
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	require.NoError(t, service.Delete(context.Background(), "a1", "u1"))
	assert.Equal(t, []string{"u1"}, repo.deleted)
}
