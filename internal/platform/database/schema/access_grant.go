// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AccessGrantTable represents the 'access.grant' table of per-user module grants.
type AccessGrantTable struct {
	Table     string
	UserID    string
	ModuleKey string
	GrantedBy string
	GrantedAt string
}

// AccessGrant is the schema definition for access.grant
var AccessGrant = AccessGrantTable{
	Table:     "access.grant",
	UserID:    "userid",
	ModuleKey: "modulekey",
	GrantedBy: "grantedby",
	GrantedAt: "grantedat",
}
