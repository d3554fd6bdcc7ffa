// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package module

import "context"

// # Catalog Data Access

// CatalogRepository defines the data access contract for access.module.
type CatalogRepository interface {

	/*
		ListActive returns active modules ordered by display order, then name.
	*/
	ListActive(ctx context.Context) ([]Module, error)

	/*
		ListAll returns every module (active or not) in display order.
	*/
	ListAll(ctx context.Context) ([]Module, error)

	/*
		FindByKey returns a single module.

		Returns:
		  - error: apperr.NotFound when the key is unknown
	*/
	FindByKey(ctx context.Context, key Key) (*Module, error)

	/*
		Create inserts a module.

		Returns:
		  - error: apperr.Conflict when the key already exists
	*/
	Create(ctx context.Context, m *Module) error

	/*
		Update persists the mutable presentation fields. The key never changes.
	*/
	Update(ctx context.Context, m *Module) error

	/*
		SetActive toggles visibility of a module without touching its grants.
	*/
	SetActive(ctx context.Context, key Key, active bool) error

	/*
		Delete removes a module.

		Returns:
		  - error: apperr.Conflict when grants still reference the key
	*/
	Delete(ctx context.Context, key Key) error
}

// # Grant Data Access

// GrantRepository defines the data access contract for access.grant.
type GrantRepository interface {

	/*
		ListGrantedModules returns the active modules explicitly granted to
		userID, in display order.
	*/
	ListGrantedModules(ctx context.Context, userID string) ([]Module, error)

	/*
		ListGrants returns the raw grant rows of userID (inactive modules included).
	*/
	ListGrants(ctx context.Context, userID string) ([]Grant, error)

	/*
		ListGrantees returns the ids of every user holding a grant on key.
	*/
	ListGrantees(ctx context.Context, key Key) ([]string, error)

	/*
		Replace atomically swaps the grant set of userID for keys.
	*/
	Replace(ctx context.Context, userID string, keys []Key, grantedBy string) error

	/*
		Grant adds one row. Granting twice is a no-op.
	*/
	Grant(ctx context.Context, userID string, key Key, grantedBy string) error

	/*
		Revoke deletes one row. Revoking a missing grant is a no-op.
	*/
	Revoke(ctx context.Context, userID string, key Key) error
}
