// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
	"github.com/taibuivan/opsdash/internal/platform/sec"
)

// # Credential Failures

// Typed sign-in failures. [Manager.Login] maps each one to a fixed message.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailNotConfirmed  = errors.New("auth: email not confirmed")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// ResetTicket is handed to a [ResetNotifier] after a reset was requested.
type ResetTicket struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// CredentialStore verifies passwords and manages password resets.
type CredentialStore interface {
	// SignIn returns the identity for a matching email and password, or one of
	// [ErrInvalidCredentials], [ErrEmailNotConfirmed], [ErrUserNotFound].
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignOut ends the provider-side session of userID.
	SignOut(ctx context.Context, userID string) error

	// RequestPasswordReset issues a reset token, or [ErrUserNotFound].
	RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error)

	// UpdatePassword consumes token, stores newPassword and returns the owner's id.
	UpdatePassword(ctx context.Context, token, newPassword string) (string, error)
}

// ResetTokenRepository keeps single-use reset token digests.
type ResetTokenRepository interface {
	Set(ctx context.Context, digest, userID string, ttl time.Duration) error
	Consume(ctx context.Context, digest string) (string, error)
}

// # Postgres Implementation

var accountTable = schema.UserAccount

// PostgresCredentialStore implements [CredentialStore] over users.account with bcrypt hashes.
type PostgresCredentialStore struct {
	db     postgres.DB
	tokens ResetTokenRepository
	now    func() time.Time
}

// NewCredentialStore creates the Postgres credential store.
func NewCredentialStore(db postgres.DB, tokens ResetTokenRepository) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db, tokens: tokens, now: time.Now}
}

/*
SignIn verifies a password against the stored bcrypt hash.

Description: The email lookup is case-insensitive. The confirmation check runs
only after the password matched, so an unconfirmed account does not reveal itself
to someone who does not know the password.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *Identity: The verified account
  - error: A typed credential failure or a query error
*/
func (store *PostgresCredentialStore) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s WHERE lower(%s) = lower($1)`,
		accountTable.ID, accountTable.Email, accountTable.PasswordHash, accountTable.EmailConfirmedAt,
		accountTable.Table, accountTable.Email)

	var (
		identity    Identity
		hash        string
		confirmedAt *time.Time
	)
	err := store.db.QueryRow(ctx, query, email).Scan(&identity.UserID, &identity.Email, &hash, &confirmedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_sign_in_failed: %w", err)
	}

	if !sec.CheckPasswordHash(password, hash) {
		return nil, ErrInvalidCredentials
	}
	if confirmedAt == nil {
		return nil, ErrEmailNotConfirmed
	}

	// Bookkeeping only. A failed write does not fail the sign-in.
	update := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		accountTable.Table, accountTable.LastSignInAt, accountTable.ID)
	if _, err := store.db.Exec(ctx, update, identity.UserID, store.now()); err != nil {
		ctxutil.GetLogger(ctx).Warn("last_sign_in_update_failed", "user_id", identity.UserID, "error", err)
	}

	return &identity, nil
}

// SignOut has nothing to revoke: sessions live in the [SessionStore].
func (store *PostgresCredentialStore) SignOut(_ context.Context, _ string) error {
	return nil
}

// RequestPasswordReset stores the digest of a fresh token for the account behind email.
func (store *PostgresCredentialStore) RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE lower(%s) = lower($1)`,
		accountTable.ID, accountTable.Email, accountTable.Table, accountTable.Email)

	ticket := &ResetTicket{}
	err := store.db.QueryRow(ctx, query, email).Scan(&ticket.UserID, &ticket.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_reset_lookup_failed: %w", err)
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return nil, err
	}

	if err := store.tokens.Set(ctx, sec.HashToken(token), ticket.UserID, ResetTokenTTL); err != nil {
		return nil, err
	}

	ticket.Token = token
	ticket.ExpiresAt = store.now().Add(ResetTokenTTL)
	return ticket, nil
}

/*
UpdatePassword exchanges a reset token for a new password hash.

Returns:
  - string: The account id whose password changed
  - error: UNPROCESSABLE for an unknown or used token, or storage errors
*/
func (store *PostgresCredentialStore) UpdatePassword(ctx context.Context, token, newPassword string) (string, error) {
	userID, err := store.tokens.Consume(ctx, sec.HashToken(token))
	if err != nil {
		return "", err
	}

	hash, err := sec.HashPassword(newPassword)
	if err != nil {
		return "", err
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		accountTable.Table, accountTable.PasswordHash, accountTable.ID)
	tag, err := store.db.Exec(ctx, update, userID, hash)
	if err != nil {
		return "", fmt.Errorf("postgres_credential_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", apperr.NotFound("User")
	}
	return userID, nil
}
