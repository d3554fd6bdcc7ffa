// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/platform/sec"
)

func newTokenService(t *testing.T, issuer string) *sec.TokenService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return sec.NewTokenServiceFromKeys(key, &key.PublicKey, issuer)
}

/*
TestTokenService_RoundTrip verifies that a signed token yields the same session binding.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTokenService(t, "opsdash.test")

	token, err := service.GenerateAccessToken("sess-1", "u1", "a@x.com", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID())
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

/*
TestTokenService_RejectsForeignKeyAndIssuer ensures tokens from another signer or issuer fail.
*/
func TestTokenService_RejectsForeignKeyAndIssuer(t *testing.T) {
	trusted := newTokenService(t, "opsdash.test")
	stranger := newTokenService(t, "opsdash.test")
	otherIssuer := newTokenService(t, "elsewhere")

	foreign, err := stranger.GenerateAccessToken("s", "u", "e", "user", time.Hour)
	require.NoError(t, err)
	_, err = trusted.VerifyToken(foreign)
	assert.Error(t, err)

	wrongIssuer, err := otherIssuer.GenerateAccessToken("s", "u", "e", "user", time.Hour)
	require.NoError(t, err)
	_, err = trusted.VerifyToken(wrongIssuer)
	assert.Error(t, err)
}

/*
TestTokenService_RejectsExpired ensures expired tokens cannot be replayed.
*/
func TestTokenService_RejectsExpired(t *testing.T) {
	service := newTokenService(t, "opsdash.test")

	token, err := service.GenerateAccessToken("s", "u", "e", "user", -time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.Error(t, err)
}

/*
TestParseRole covers legacy capitalized names and the manager compatibility tier.
*/
func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    sec.UserRole
		isAdmin bool
	}{
		{"Admin", sec.RoleAdmin, true},
		{" admin ", sec.RoleAdmin, true},
		{"Manager", sec.RoleManager, false},
		{"User", sec.RoleUser, false},
		{"", sec.RoleUser, false},
		{"superuser", sec.RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role := sec.ParseRole(tt.input)
			assert.Equal(t, tt.want, role)
			assert.Equal(t, tt.isAdmin, role.IsAdmin())
		})
	}
}

/*
TestPasswordAndTokenHashing checks bcrypt verification and token digests.
*/
func TestPasswordAndTokenHashing(t *testing.T) {
	hash, err := sec.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("correct horse", hash))
	assert.False(t, sec.CheckPasswordHash("wrong horse", hash))

	token, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, sec.HashToken(token), 64)
	assert.Equal(t, sec.HashToken(token), sec.HashToken(token))
}
