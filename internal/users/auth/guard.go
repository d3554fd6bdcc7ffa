// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxkey"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/respond"
)

// # Guards

// RequireLogin denies anonymous sessions.
func RequireLogin(s *Session) *apperr.AppError {
	if !s.IsAuthenticated() {
		return apperr.Unauthorized(MsgAuthRequired)
	}
	return nil
}

// RequireAdmin denies sessions without the admin role.
func RequireAdmin(s *Session) *apperr.AppError {
	if denial := RequireLogin(s); denial != nil {
		return denial
	}
	if !s.IsAdmin() {
		return apperr.Forbidden(MsgAdminRequired)
	}
	return nil
}

// RequireModuleAccess denies sessions that may not open key.
func RequireModuleAccess(s *Session, key module.Key) *apperr.AppError {
	if denial := RequireLogin(s); denial != nil {
		return denial
	}
	if !s.HasModuleAccess(key) {
		return apperr.Forbidden(MsgModuleRequired)
	}
	return nil
}

// # Context Helpers

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, s)
}

// SessionFrom returns the session stored in ctx, or an anonymous one.
func SessionFrom(ctx context.Context) *Session {
	s, ok := ctx.Value(ctxkey.KeySession).(*Session)
	if !ok || s == nil {
		return &Session{}
	}
	return s
}

// # Middlewares

/*
LoadSession resolves the session named by the verified token's jti.

Description: Runs after [middleware.Authenticate]. A token whose session is
gone (logout, password change, expiry) or belongs to another user leaves the
request anonymous.
*/
func LoadSession(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if claims == nil {
				next.ServeHTTP(writer, request)
				return
			}

			session, err := store.Get(request.Context(), claims.SessionID())
			switch {
			case apperr.IsNotFound(err):
				next.ServeHTTP(writer, request)
				return
			case err != nil:
				respond.Error(writer, request, apperr.Internal(err))
				return
			}

			if session.User.UserID != claims.UserID {
				ctxutil.GetLogger(request.Context()).Warn("session_owner_mismatch",
					slog.String("session_id", session.ID), slog.String("user_id", claims.UserID))
				next.ServeHTTP(writer, request)
				return
			}

			next.ServeHTTP(writer, request.WithContext(WithSession(request.Context(), session)))
		})
	}
}

// Guard renders the denial of check and stops the chain, or calls next.
func Guard(check func(*Session) *apperr.AppError) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if denial := check(SessionFrom(request.Context())); denial != nil {
				respond.Error(writer, request, denial)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// LoginRequired guards a route with [RequireLogin].
func LoginRequired(next http.Handler) http.Handler {
	return Guard(RequireLogin)(next)
}

// AdminRequired guards a route with [RequireAdmin].
func AdminRequired(next http.Handler) http.Handler {
	return Guard(RequireAdmin)(next)
}

// ModuleRequired guards a route with [RequireModuleAccess] for key.
func ModuleRequired(key module.Key) func(http.Handler) http.Handler {
	return Guard(func(s *Session) *apperr.AppError {
		return RequireModuleAccess(s, key)
	})
}
