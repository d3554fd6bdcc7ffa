// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/account"
)

// UsersScreen is the admin_users screen.
type UsersScreen struct {
	console *Console
}

// Key identifies the screen.
func (screen *UsersScreen) Key() module.Key { return module.KeyAdminUsers }

// Routes returns the user management endpoints.
//
// # Endpoints
//   - GET    /                   : Lists users (filters: role, active, search).
//   - POST   /                   : Creates a user.
//   - PATCH  /{userID}           : Changes name, role or status.
//   - DELETE /{userID}           : Hard-deletes a user.
//   - GET    /{userID}/activity  : Recent activity of one user.
func (screen *UsersScreen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", screen.list)
	router.Post("/", screen.create)
	router.Patch("/{userID}", screen.update)
	router.Delete("/{userID}", screen.remove)
	router.Get("/{userID}/activity", screen.activity)

	return router
}

type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (screen *UsersScreen) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := account.Filter{Search: query.Get("search")}

	if role := query.Get("role"); role != "" {
		filter.Role = sec.UserRole(role)
	}
	if active, err := strconv.ParseBool(query.Get("active")); err == nil {
		filter.Active = &active
	}

	users, err := screen.console.accounts.List(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, users)
}

/*
Create enrolls a user.

POST /api/v1/modules/admin_users

Response:
  - 201: Created profile
  - 400: Validation failure
  - 409: Email already registered
*/
func (screen *UsersScreen) create(writer http.ResponseWriter, request *http.Request) {
	var input createUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	role := sec.RoleUser
	if input.Role != "" {
		role = sec.UserRole(input.Role)
	}

	profile, err := screen.console.accounts.Create(request.Context(), account.NewUser{
		Email:    input.Email,
		FullName: input.FullName,
		Password: input.Password,
		Role:     role,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(request.Context(), screen.Key(), "Created new user "+profile.Email, map[string]any{
		"new_user_email": profile.Email,
		"role":           string(profile.Role),
	})

	respond.Created(writer, profile)
}

/*
Update changes mutable fields of a user and refreshes their sessions.

PATCH /api/v1/modules/admin_users/{userID}

Description: A deactivated user's live sessions are terminated by the refresh.
*/
func (screen *UsersScreen) update(writer http.ResponseWriter, request *http.Request) {
	var input updateUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	changes := account.Changes{FullName: input.FullName, IsActive: input.IsActive}
	if input.Role != nil {
		role := sec.UserRole(*input.Role)
		changes.Role = &role
	}

	userID := requestutil.Param(request, "userID")
	profile, err := screen.console.accounts.Update(request.Context(), actorID(request.Context()), userID, changes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(request.Context(), screen.Key(), "Updated user "+profile.Email, map[string]any{
		"target_user": profile.Email,
		"full_name":   profile.FullName,
		"role":        string(profile.Role),
		"is_active":   profile.IsActive,
	})
	screen.console.refresh(request.Context(), userID)

	respond.OK(writer, profile)
}

func (screen *UsersScreen) remove(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	userID := requestutil.Param(request, "userID")

	if err := screen.console.accounts.Delete(ctx, actorID(ctx), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := screen.console.sessions.TerminateUser(ctx, userID); err != nil {
		ctxutil.GetLogger(ctx).Warn("session_termination_failed", "user_id", userID, "error", err)
	}
	screen.console.audit(ctx, screen.Key(), "Deleted user "+userID, map[string]any{"target_user_id": userID})

	respond.NoContent(writer)
}

func (screen *UsersScreen) activity(writer http.ResponseWriter, request *http.Request) {
	limit := requestutil.IntQuery(request, "limit", 50)

	validator := &validate.Validator{}
	validator.Range("limit", limit, 1, activity.MaxLimit)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	entries, err := screen.console.logs.ListByUser(request.Context(), requestutil.Param(request, "userID"), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, entries)
}
