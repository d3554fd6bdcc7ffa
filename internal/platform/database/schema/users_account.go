// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserAccountTable represents the 'users.account' table (credentials).
type UserAccountTable struct {
	Table            string
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt string
	LastSignInAt     string
	CreatedAt        string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:            "users.account",
	ID:               "id",
	Email:            "email",
	PasswordHash:     "passwordhash",
	EmailConfirmedAt: "emailconfirmedat",
	LastSignInAt:     "lastsigninat",
	CreatedAt:        "createdat",
}
