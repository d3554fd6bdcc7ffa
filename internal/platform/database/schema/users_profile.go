// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserProfileTable represents the 'users.profile' table.
type UserProfileTable struct {
	Table     string
	ID        string
	Email     string
	FullName  string
	Role      string
	IsActive  string
	CreatedAt string
	UpdatedAt string
}

// UserProfile is the schema definition for users.profile
var UserProfile = UserProfileTable{
	Table:     "users.profile",
	ID:        "id",
	Email:     "email",
	FullName:  "fullname",
	Role:      "role",
	IsActive:  "isactive",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names
func (t UserProfileTable) Columns() []string {
	return []string{t.ID, t.Email, t.FullName, t.Role, t.IsActive, t.CreatedAt, t.UpdatedAt}
}
