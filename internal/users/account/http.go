// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// SessionRefresher pushes profile changes into live sessions.
type SessionRefresher interface {
	RefreshUser(ctx context.Context, userID string) error
}

// Handler implements the self-service account endpoints.
type Handler struct {
	accountService *Service
	sessions       SessionRefresher
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, sessions SessionRefresher) *Handler {
	return &Handler{accountService: service, sessions: sessions}
}

// Routes returns a [chi.Router] with the account endpoints. Every route needs a session.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(auth.LoginRequired)

	router.Get("/me", handler.getMe)
	router.Patch("/me", handler.updateMe)

	return router
}

/*
GET /api/v1/account/me.

Description: Retrieves the stored profile of the signed-in user.

Response:
  - 200: Profile
  - 401: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	session := auth.SessionFrom(request.Context())

	profile, err := handler.accountService.FindProfile(request.Context(), session.User.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// updateMeRequest defines the expected JSON payload for profile updates.
type updateMeRequest struct {
	FullName *string `json:"full_name"`
}

/*
PATCH /api/v1/account/me.

Description: Renames the signed-in user. Role and status are admin-only.

Response:
  - 200: The updated profile
  - 400: Invalid input data
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	userID := auth.SessionFrom(request.Context()).User.UserID

	profile, err := handler.accountService.Update(request.Context(), userID, userID, Changes{FullName: input.FullName})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessions.RefreshUser(request.Context(), userID); err != nil {
		ctxutil.GetLogger(request.Context()).Warn("session_refresh_failed", "user_id", userID, "error", err)
	}

	respond.OK(writer, profile)
}
