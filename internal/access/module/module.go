// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package module owns the module catalog and the per-user grants that decide
which dashboard screens a non-admin may open.

# Keys

Every screen the server can actually serve is a [Key] constant. The catalog
may hold rows for keys that have no screen yet (admins create them ahead of
the code); those rows are listed and granted like any other but their routes
answer 404.
*/
package module

import (
	"regexp"
	"time"
)

// Key is the stable machine identifier of a module.
type Key string

// Feature screens.
const (
	KeyOrderExtractor         Key = "order_extractor"
	KeyStockPriceUpdater      Key = "stock_price_updater"
	KeyProductManagement      Key = "product_management"
	KeyShippingLabelGenerator Key = "shipping_label_generator"
	KeyMRPLabelGenerator      Key = "mrp_label_generator"
	KeyWooZohoExport          Key = "woocommerce_zoho_export"
)

// Admin screens. They are never stored in the catalog: the admin role
// reaches them implicitly.
const (
	KeyAdminUsers       Key = "admin_users"
	KeyAdminPermissions Key = "admin_permissions"
	KeyAdminLogs        Key = "admin_logs"
	KeyAdminModules     Key = "admin_modules"
)

// DefaultIcon and DefaultDisplayOrder apply when a module is created without them.
const (
	DefaultIcon         = "⚙️"
	DefaultDisplayOrder = 99
)

var keyPattern = regexp.MustCompile(`^[a-z_]+$`)

// Keys lists every key the server has a screen for, features first.
func Keys() []Key {
	return []Key{
		KeyOrderExtractor,
		KeyStockPriceUpdater,
		KeyProductManagement,
		KeyShippingLabelGenerator,
		KeyMRPLabelGenerator,
		KeyWooZohoExport,
		KeyAdminUsers,
		KeyAdminPermissions,
		KeyAdminLogs,
		KeyAdminModules,
	}
}

// ParseKey returns the screen key for s, reporting false when no screen exists.
func ParseKey(s string) (Key, bool) {
	for _, k := range Keys() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// WellFormed reports whether k matches the catalog key format.
func (k Key) WellFormed() bool {
	return keyPattern.MatchString(string(k))
}

// IsAdmin reports whether k is one of the admin console screens.
func (k Key) IsAdmin() bool {
	switch k {
	case KeyAdminUsers, KeyAdminPermissions, KeyAdminLogs, KeyAdminModules:
		return true
	}
	return false
}

func (k Key) String() string { return string(k) }

// Module is one row of the catalog.
type Module struct {
	Key          Key       `json:"module_key"`
	Name         string    `json:"module_name"`
	Icon         string    `json:"icon"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Grant authorizes one non-admin user to open one module.
type Grant struct {
	UserID    string    `json:"user_id"`
	ModuleKey Key       `json:"module_key"`
	GrantedBy string    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// Set is a lookup over resolved module keys.
type Set map[Key]struct{}

// NewSet indexes the keys of modules.
func NewSet(modules []Module) Set {
	set := make(Set, len(modules))
	for _, m := range modules {
		set[m.Key] = struct{}{}
	}
	return set
}

// Has reports whether k is in the set.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// # Field Identifiers

const (
	FieldModuleKey    = "module_key"
	FieldModuleName   = "module_name"
	FieldIcon         = "icon"
	FieldDisplayOrder = "display_order"
	FieldModuleKeys   = "module_keys"
)
