// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// ResetTokenTTL is the duration a password reset token remains valid.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// MinPasswordLength is enforced on account creation and password updates.
	MinPasswordLength = 8
)

// # Login Failure Messages

const (
	MsgInvalidCredentials = "Invalid email or password. %d attempt(s) remaining."
	MsgEmailNotConfirmed  = "Please verify your email address before logging in."
	MsgUserNotFound       = "No account found with this email."
	MsgLoginFailed        = "Login failed. Please try again later."
	MsgProfileMissing     = "User profile not found. Please contact administrator."
	MsgProfileInactive    = "Your account has been deactivated. Please contact administrator."
)

// # Guard Denials

const (
	MsgAuthRequired   = "Authentication required"
	MsgAdminRequired  = "Access denied. Admin privileges required."
	MsgModuleRequired = "Access denied. You don't have permission to access this module."
)

// # Field Identifiers

const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldToken       = "token"
	FieldNewPassword = "new_password"
	FieldModuleKey   = "module_key"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldSession     = "session"
	FieldMessage     = "message"
)
