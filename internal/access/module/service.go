// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// Service implements catalog and grant management use cases.
type Service struct {
	catalog CatalogRepository
	grants  GrantRepository
}

// NewService constructs a module [Service].
func NewService(catalog CatalogRepository, grants GrantRepository) *Service {
	return &Service{catalog: catalog, grants: grants}
}

// # Catalog

// CreateInput carries a new catalog row.
type CreateInput struct {
	Key          string `json:"module_key"`
	Name         string `json:"module_name"`
	Icon         string `json:"icon"`
	Description  string `json:"description"`
	DisplayOrder *int   `json:"display_order"`
}

// UpdateInput carries the editable presentation fields.
type UpdateInput struct {
	Name         string `json:"module_name"`
	Icon         string `json:"icon"`
	Description  string `json:"description"`
	DisplayOrder *int   `json:"display_order"`
}

// ListActive returns the active catalog in display order.
func (service *Service) ListActive(ctx context.Context) ([]Module, error) {
	return service.catalog.ListActive(ctx)
}

// ListGrantedModules returns the active modules granted to userID.
func (service *Service) ListGrantedModules(ctx context.Context, userID string) ([]Module, error) {
	return service.grants.ListGrantedModules(ctx, userID)
}

// ListAll returns the whole catalog.
func (service *Service) ListAll(ctx context.Context) ([]Module, error) {
	return service.catalog.ListAll(ctx)
}

/*
Create validates and inserts a catalog row.

Description: The key must be lowercase letters and underscores, the name is
required, and absent icon or display order fall back to the catalog defaults.
Admin screen keys are reserved.

Returns:
  - *Module: Created entity
  - error: VALIDATION_ERROR, CONFLICT or storage failures
*/
func (service *Service) Create(ctx context.Context, input CreateInput) (*Module, error) {
	input.Key = strings.TrimSpace(input.Key)
	input.Name = strings.TrimSpace(input.Name)

	v := &validate.Validator{}
	v.Required(FieldModuleKey, input.Key).
		ModuleKey(FieldModuleKey, input.Key).
		MaxLen(FieldModuleKey, input.Key, 64).
		Custom(FieldModuleKey, Key(input.Key).IsAdmin(), "This key is reserved for the admin console").
		Required(FieldModuleName, input.Name).
		MaxLen(FieldModuleName, input.Name, 120)
	if input.DisplayOrder != nil {
		v.Range(FieldDisplayOrder, *input.DisplayOrder, 0, 9999)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	item := &Module{
		Key:          Key(input.Key),
		Name:         input.Name,
		Icon:         input.Icon,
		Description:  strings.TrimSpace(input.Description),
		IsActive:     true,
		DisplayOrder: DefaultDisplayOrder,
	}
	if item.Icon == "" {
		item.Icon = DefaultIcon
	}
	if input.DisplayOrder != nil {
		item.DisplayOrder = *input.DisplayOrder
	}

	if err := service.catalog.Create(ctx, item); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("module_service_create_failed: %w", err)
	}
	return item, nil
}

/*
Update rewrites the presentation fields of an existing module.

The key is never part of the update; it is immutable.
*/
func (service *Service) Update(ctx context.Context, key Key, input UpdateInput) (*Module, error) {
	current, err := service.catalog.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	v := &validate.Validator{}
	v.Required(FieldModuleName, input.Name).MaxLen(FieldModuleName, input.Name, 120)
	if input.DisplayOrder != nil {
		v.Range(FieldDisplayOrder, *input.DisplayOrder, 0, 9999)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	current.Name = input.Name
	current.Description = strings.TrimSpace(input.Description)
	if input.Icon != "" {
		current.Icon = input.Icon
	}
	if input.DisplayOrder != nil {
		current.DisplayOrder = *input.DisplayOrder
	}

	if err := service.catalog.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SetActive activates or deactivates a module.
func (service *Service) SetActive(ctx context.Context, key Key, active bool) error {
	return service.catalog.SetActive(ctx, key, active)
}

// Delete removes a module that no grant references.
func (service *Service) Delete(ctx context.Context, key Key) error {
	err := service.catalog.Delete(ctx, key)
	if apperr.HasCode(err, apperr.CodeConflict) {
		return apperr.Conflict("Module is granted to users; revoke the grants or deactivate it instead")
	}
	return err
}

// # Grants

// ListGrants returns the raw grants of userID.
func (service *Service) ListGrants(ctx context.Context, userID string) ([]Grant, error) {
	return service.grants.ListGrants(ctx, userID)
}

// ListGrantees returns the ids of the users granted key.
func (service *Service) ListGrantees(ctx context.Context, key Key) ([]string, error) {
	return service.grants.ListGrantees(ctx, key)
}

/*
ReplaceGrants swaps the complete grant set of userID.

Description: Every key must name an active catalog module. Duplicates are
collapsed. An empty list revokes everything.

Returns:
  - []Key: The keys actually stored
  - error: VALIDATION_ERROR on unknown or inactive keys
*/
func (service *Service) ReplaceGrants(ctx context.Context, userID string, keys []string, grantedBy string) ([]Key, error) {
	clean, err := service.activeKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	if err := service.grants.Replace(ctx, userID, clean, grantedBy); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("module_service_replace_grants_failed: %w", err)
	}
	return clean, nil
}

// Grant adds a single grant after checking the module is active.
func (service *Service) Grant(ctx context.Context, userID string, key Key, grantedBy string) error {
	if _, err := service.activeKeys(ctx, []string{string(key)}); err != nil {
		return err
	}
	return service.grants.Grant(ctx, userID, key, grantedBy)
}

// Revoke removes a single grant.
func (service *Service) Revoke(ctx context.Context, userID string, key Key) error {
	return service.grants.Revoke(ctx, userID, key)
}

// activeKeys deduplicates keys and rejects any that are not active catalog rows.
func (service *Service) activeKeys(ctx context.Context, keys []string) ([]Key, error) {
	active, err := service.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("module_service_list_active_failed: %w", err)
	}
	catalog := NewSet(active)

	seen := make(map[Key]bool, len(keys))
	clean := make([]Key, 0, len(keys))
	v := &validate.Validator{}
	for _, raw := range keys {
		key := Key(strings.TrimSpace(raw))
		if seen[key] {
			continue
		}
		seen[key] = true
		v.Custom(FieldModuleKeys, !catalog.Has(key), fmt.Sprintf("Unknown or inactive module: %s", key))
		clean = append(clean, key)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return clean, nil
}
