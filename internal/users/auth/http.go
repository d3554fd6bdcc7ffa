// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler constructs a new [Handler] over manager.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login                 : Opens a session and returns a bearer token.
//   - POST /password/reset        : Requests a reset token.
//   - POST /password/update       : Exchanges a reset token for a new password.
//   - POST /logout                : Terminates the current session.
//   - GET  /me                    : Returns the current session.
//   - POST /refresh               : Re-resolves role and module permissions.
//   - POST /modules/{key}/select  : Makes a module current.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/password/reset", handler.requestReset)
	router.Post("/password/update", handler.updatePassword)

	// Session endpoints
	router.Group(func(r chi.Router) {
		r.Use(LoginRequired)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.me)
		r.Post("/refresh", handler.refresh)
		r.Post("/modules/{key}/select", handler.selectModule)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

/*
Login authenticates a user and opens a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Access token and session
  - 401: Credential failure with the attempts left
  - 403: Missing or deactivated profile
  - 429: Email locked out, with Retry-After
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, token, err := handler.manager.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccessToken: token,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int(handler.manager.TokenTTL().Seconds()),
		FieldSession:     session,
	})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Response:
  - 204: Session terminated; the bearer token is now useless
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.manager.Logout(request.Context(), SessionFrom(request.Context())); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// me returns the session bound to the bearer token.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, SessionFrom(request.Context()))
}

/*
Refresh re-reads role and grants for the current session.

POST /api/v1/auth/refresh

Response:
  - 200: Updated session
  - 401: The account was deactivated and the session terminated
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	session := SessionFrom(request.Context())

	if err := handler.manager.RefreshPermissions(request.Context(), session); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, session)
}

/*
SelectModule makes a module current for the session.

POST /api/v1/auth/modules/{key}/select

Response:
  - 200: Updated session
  - 403: The module is not accessible
  - 404: Unknown module key
*/
func (handler *Handler) selectModule(writer http.ResponseWriter, request *http.Request) {
	key, ok := module.ParseKey(requestutil.Param(request, "key"))
	if !ok {
		respond.Error(writer, request, apperr.NotFound("Module"))
		return
	}

	session := SessionFrom(request.Context())
	if err := handler.manager.SelectModule(request.Context(), session, key); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, session)
}

/*
RequestReset issues a password reset token.

POST /api/v1/auth/password/reset

Response:
  - 202: Always, whether or not the email exists
*/
func (handler *Handler) requestReset(writer http.ResponseWriter, request *http.Request) {
	var input resetRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.manager.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, respond.SuccessEnvelope{Data: map[string]any{
		FieldMessage: "If the email exists, a reset link has been issued.",
	}})
}

/*
UpdatePassword consumes a reset token.

POST /api/v1/auth/password/update

Response:
  - 204: Password changed, all sessions of the user terminated
  - 422: Unknown, expired or used token
*/
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	var input updatePasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.manager.UpdatePassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
