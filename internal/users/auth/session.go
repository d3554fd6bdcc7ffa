// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements sign-in, sessions and module authorization for Opsdash.

A [Session] is created by [Manager.Login], kept in a [SessionStore] and bound to
the bearer token through the token's jti claim. Authorization is hybrid:

  - Admins reach every active module in the catalog and every admin screen.
  - Everyone else reaches exactly the modules granted to them individually.

Guards return a typed [*apperr.AppError] denial so that the HTTP layer can render
it and stop before the protected handler runs.
*/
package auth

import (
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/sec"
)

// # Domain Entities

// Profile is the application-level view of a user account.
type Profile struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FullName  string       `json:"full_name"`
	Role      sec.UserRole `json:"role"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Identity is what the credential store vouches for after a successful sign-in.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// State is the lifecycle position of a [Session].
type State int

const (
	// StateAnonymous is the zero value: nobody is signed in.
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateTerminated
)

// String returns the lowercase state name used in logs and JSON views.
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateTerminated:
		return "terminated"
	default:
		return "anonymous"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name. Unknown names decode as anonymous.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "authenticating":
		*s = StateAuthenticating
	case "authenticated":
		*s = StateAuthenticated
	case "terminated":
		*s = StateTerminated
	default:
		*s = StateAnonymous
	}
	return nil
}

// Session is the per-login authorization context.
//
// Modules is resolved once at login and again on every refresh, so module checks
// never touch the database.
type Session struct {
	ID            string          `json:"id"`
	State         State           `json:"state"`
	User          Identity        `json:"user"`
	Profile       *Profile        `json:"profile,omitempty"`
	Modules       []module.Module `json:"accessible_modules"`
	CurrentModule module.Key      `json:"current_module,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
}

// IsAuthenticated reports whether s belongs to a signed-in user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.State == StateAuthenticated
}

// IsAdmin reports whether s belongs to an authenticated admin.
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Profile != nil && s.Profile.Role.IsAdmin()
}

// HasModuleAccess reports whether the session user may open key.
//
// Admins pass for every key, including the admin screens. Other roles pass only
// for keys present in the resolved module set.
func (s *Session) HasModuleAccess(key module.Key) bool {
	if !s.IsAuthenticated() {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	for _, accessible := range s.Modules {
		if accessible.Key == key {
			return true
		}
	}
	return false
}

// ModuleKeys lists the resolved module keys in display order.
func (s *Session) ModuleKeys() []module.Key {
	keys := make([]module.Key, 0, len(s.Modules))
	for _, accessible := range s.Modules {
		keys = append(keys, accessible.Key)
	}
	return keys
}

// Clear resets s to the anonymous zero value.
func (s *Session) Clear() {
	*s = Session{}
}
