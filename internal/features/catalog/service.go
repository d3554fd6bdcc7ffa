// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

const (
	// SyncLimit caps the products read from the store by one sync.
	SyncLimit = 100

	// MaxBulk caps the rows of one bulk update or delete.
	MaxBulk = 500
)

// ProductSource is the store the catalog is synced from. [*woo.Client] implements it.
type ProductSource interface {
	ListProducts(ctx context.Context, limit int) ([]woo.Product, error)
}

// CreateInput is the body of a manual add.
type CreateInput struct {
	ProductID     int64    `json:"product_id"`
	VariationID   int64    `json:"variation_id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"product_name"`
	ParentProduct string   `json:"parent_product"`
	Attribute     string   `json:"attribute"`
	RegularPrice  *float64 `json:"regular_price"`
	SalePrice     *float64 `json:"sale_price"`
	StockQuantity *int     `json:"stock_quantity"`
	Status        string   `json:"product_status"`
	Categories    string   `json:"categories"`
}

// BulkInput selects rows for a bulk operation, with the patch of a bulk update.
type BulkInput struct {
	Refs  []Ref `json:"refs"`
	Patch Patch `json:"patch"`
}

// SyncResult counts the outcome of a store sync.
type SyncResult struct {
	Fetched  int   `json:"fetched"`
	Added    int   `json:"added"`
	Skipped  int   `json:"skipped"`
	Inactive int64 `json:"marked_inactive"`
}

// Service runs the product_management operations.
type Service struct {
	repository Repository
	source     ProductSource
	recorder   activity.Recorder
}

// NewService constructs the catalog [Service].
func NewService(repository Repository, source ProductSource, recorder activity.Recorder) *Service {
	return &Service{repository: repository, source: source, recorder: recorder}
}

func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any) {
	service.recorder.Record(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyProductManagement),
		Description: description,
		Metadata:    metadata,
		Success:     true,
	})
}

// List returns one page of the catalog.
func (service *Service) List(ctx context.Context, filter Filter) ([]Product, int, error) {
	if filter.Status != "" {
		validator := &validate.Validator{}
		if err := validator.OneOf("status", filter.Status, Statuses...).Err(); err != nil {
			return nil, 0, err
		}
	}

	products, total, err := service.repository.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, total, nil
}

// Get returns one row.
func (service *Service) Get(ctx context.Context, ref Ref) (*Product, error) {
	return service.repository.Find(ctx, ref)
}

/*
Add creates a catalog row by hand.

Parameters:
  - ctx: context.Context
  - actor: string user id stored as updated_by
  - in: CreateInput (product_name and a positive product_id are required)

Returns:
  - *Product: The row as stored
  - error: VALIDATION or CONFLICT when the key exists
*/
func (service *Service) Add(ctx context.Context, actor string, in CreateInput) (*Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = DefaultStatus
	}

	validator := &validate.Validator{}
	validator.Custom("product_id", in.ProductID <= 0, "Must be a positive id")
	validator.Custom("variation_id", in.VariationID < 0, "Must not be negative")
	Patch{
		Name:          &in.Name,
		Status:        &in.Status,
		RegularPrice:  in.RegularPrice,
		SalePrice:     in.SalePrice,
		StockQuantity: in.StockQuantity,
	}.validate(validator)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	product := &Product{
		ProductID:     in.ProductID,
		VariationID:   in.VariationID,
		SKU:           strings.TrimSpace(in.SKU),
		Name:          in.Name,
		ParentProduct: in.ParentProduct,
		Attribute:     in.Attribute,
		RegularPrice:  in.RegularPrice,
		SalePrice:     in.SalePrice,
		StockQuantity: in.StockQuantity,
		Status:        in.Status,
		Categories:    in.Categories,
		IsActive:      true,
		UpdatedBy:     actor,
	}
	if err := service.repository.Create(ctx, product); err != nil {
		return nil, err
	}

	service.record(ctx, actor, activity.ActionModuleUse, "Added product: "+product.Name,
		map[string]any{"product_id": product.ProductID, "variation_id": product.VariationID})
	return service.repository.Find(ctx, product.Ref())
}

func validPatch(patch Patch) error {
	validator := &validate.Validator{}
	validator.Custom("patch", patch.Empty(), "Nothing to update")
	patch.validate(validator)
	return validator.Err()
}

// Update applies patch to one row.
func (service *Service) Update(ctx context.Context, actor string, ref Ref, patch Patch) (*Product, error) {
	patch.LastSynced = nil
	if err := validPatch(patch); err != nil {
		return nil, err
	}
	if err := service.repository.Update(ctx, ref, patch, actor); err != nil {
		return nil, err
	}
	return service.repository.Find(ctx, ref)
}

func validRefs(refs []Ref) error {
	validator := &validate.Validator{}
	validator.Custom("refs", len(refs) == 0, "Select at least one product")
	validator.Custom("refs", len(refs) > MaxBulk, fmt.Sprintf("At most %d products per request", MaxBulk))
	return validator.Err()
}

// BulkUpdate applies the same patch to every selected row.
func (service *Service) BulkUpdate(ctx context.Context, actor string, in BulkInput) (int64, error) {
	in.Patch.LastSynced = nil
	if err := validRefs(in.Refs); err != nil {
		return 0, err
	}
	if err := validPatch(in.Patch); err != nil {
		return 0, err
	}

	updated, err := service.repository.BulkUpdate(ctx, in.Refs, in.Patch, actor)
	if err != nil {
		return 0, err
	}
	service.record(ctx, actor, activity.ActionModuleUse, fmt.Sprintf("Bulk updated %d products", updated),
		map[string]any{"requested": len(in.Refs), "updated": updated})
	return updated, nil
}

// Delete removes one row.
func (service *Service) Delete(ctx context.Context, actor string, ref Ref) error {
	if err := service.repository.Delete(ctx, ref); err != nil {
		return err
	}
	service.record(ctx, actor, activity.ActionModuleUse, "Deleted product",
		map[string]any{"product_id": ref.ProductID, "variation_id": ref.VariationID})
	return nil
}

// BulkDelete removes every selected row.
func (service *Service) BulkDelete(ctx context.Context, actor string, refs []Ref) (int64, error) {
	if err := validRefs(refs); err != nil {
		return 0, err
	}

	deleted, err := service.repository.BulkDelete(ctx, refs)
	if err != nil {
		return 0, err
	}
	service.record(ctx, actor, activity.ActionModuleUse, fmt.Sprintf("Bulk deleted %d products", deleted),
		map[string]any{"requested": len(refs), "deleted": deleted})
	return deleted, nil
}

/*
Sync copies new products from the store into the catalog.

Description: The sync is one way. Up to [SyncLimit] store products are read.
Rows already in the catalog are skipped, never overwritten. Active rows whose
product id the store no longer returned are marked inactive.
*/
func (service *Service) Sync(ctx context.Context, actor string) (*SyncResult, error) {
	start := time.Now()

	products, err := service.source.ListProducts(ctx, SyncLimit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.BadGateway("Failed to fetch products from WooCommerce", err)
	}

	rows := make([]Product, 0, len(products))
	seen := make([]int64, 0, len(products))
	for _, product := range products {
		if row, ok := fromWoo(product); ok {
			rows = append(rows, row)
			seen = append(seen, row.ProductID)
		}
	}

	result := &SyncResult{Fetched: len(products)}
	if result.Added, err = service.repository.InsertMissing(ctx, rows, actor); err != nil {
		return nil, err
	}
	result.Skipped = len(rows) - result.Added

	if len(seen) > 0 {
		if result.Inactive, err = service.repository.DeactivateMissing(ctx, seen, actor); err != nil {
			return nil, err
		}
	}

	ctxutil.GetLogger(ctx).Info("catalog_synced",
		slog.Int("fetched", result.Fetched),
		slog.Int("added", result.Added),
		slog.Int64("inactive", result.Inactive),
		slog.Duration("took", time.Since(start)),
	)
	service.record(ctx, actor, activity.ActionSync, "Synced products from WooCommerce", map[string]any{
		"fetched": result.Fetched, "added": result.Added, "skipped": result.Skipped, "marked_inactive": result.Inactive,
	})
	return result, nil
}

// Stats summarises the catalog.
func (service *Service) Stats(ctx context.Context) (*Stats, error) {
	return service.repository.Stats(ctx)
}

// Statuses returns the statuses in use.
func (service *Service) Statuses(ctx context.Context) ([]string, error) {
	return service.repository.Statuses(ctx)
}

// Categories returns the category names in use.
func (service *Service) Categories(ctx context.Context) ([]string, error) {
	return service.repository.Categories(ctx)
}
