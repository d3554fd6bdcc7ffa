// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package stock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/pkg/pointer"
	"github.com/taibuivan/opsdash/pkg/uuid"
)

const (
	// MaxChanges caps the rows of one preview or apply.
	MaxChanges = 1000

	// DefaultHistoryLimit is the page size of the change history.
	DefaultHistoryLimit = 100

	// syncWorkers bounds concurrent store reads of one sync.
	syncWorkers = 4
)

// Catalog is the part of the product catalog the updater uses.
// [*catalog.PostgresRepository] implements it.
type Catalog interface {
	All(ctx context.Context) ([]catalog.Product, error)
	Update(ctx context.Context, ref catalog.Ref, patch catalog.Patch, actor string) error
}

// ProductStore reads and writes store products. [*woo.Client] implements it.
type ProductStore interface {
	GetProduct(ctx context.Context, productID, variationID int64) (*woo.Product, error)
	UpdateProduct(ctx context.Context, productID, variationID int64, update woo.ProductUpdate) error
}

// Lists is the catalog split by update policy.
type Lists struct {
	Updatable    []Item `json:"updatable"`
	NonUpdatable []Item `json:"non_updatable"`
	Deleted      []Item `json:"deleted"`
}

// Preview is the outcome of validating a set of changes.
type Preview struct {
	Changes []Planned `json:"changes"`
	Errors  []string  `json:"errors"`
}

// ApplyResult reports one pushed batch.
type ApplyResult struct {
	BatchID string   `json:"batch_id"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// SyncResult counts the outcome of a pull from the store.
type SyncResult struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// Service runs the stock_price_updater operations.
type Service struct {
	catalog  Catalog
	settings SettingStore
	history  HistoryStore
	store    ProductStore
	recorder activity.Recorder
	now      func() time.Time
}

// NewService constructs the stock and price [Service].
func NewService(products Catalog, settings SettingStore, history HistoryStore, store ProductStore, recorder activity.Recorder) *Service {
	return &Service{
		catalog:  products,
		settings: settings,
		history:  history,
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any, success bool) {
	service.recorder.Record(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyStockPriceUpdater),
		Description: description,
		Metadata:    metadata,
		Success:     success,
	})
}

// items joins the catalog with the settings.
func (service *Service) items(ctx context.Context) ([]Item, error) {
	products, err := service.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := service.settings.All(ctx)
	if err != nil {
		return nil, err
	}

	policy := make(map[catalog.Ref]Setting, len(settings))
	for _, setting := range settings {
		policy[setting.Ref] = setting
	}

	items := make([]Item, 0, len(products))
	for _, product := range products {
		item := Item{Product: product, IsUpdatable: true}
		if setting, ok := policy[product.Ref()]; ok {
			item.IsUpdatable, item.IsDeleted = setting.IsUpdatable, setting.IsDeleted
		}
		items = append(items, item)
	}
	return items, nil
}

// Lists returns the catalog split into the updatable, non-updatable and deleted lists.
func (service *Service) Lists(ctx context.Context) (*Lists, error) {
	items, err := service.items(ctx)
	if err != nil {
		return nil, err
	}

	lists := &Lists{Updatable: []Item{}, NonUpdatable: []Item{}, Deleted: []Item{}}
	for _, item := range items {
		switch {
		case item.IsDeleted:
			lists.Deleted = append(lists.Deleted, item)
		case item.IsUpdatable:
			lists.Updatable = append(lists.Updatable, item)
		default:
			lists.NonUpdatable = append(lists.NonUpdatable, item)
		}
	}
	return lists, nil
}

/*
Preview validates changes against the catalog.

Description: Changes to unknown, deleted or non-updatable rows are rejected,
as are negative values and a sale price above the regular price (the new one
when given, else the current one). Fields equal to the current value are
dropped, and so are changes left with no field.
*/
func (service *Service) Preview(ctx context.Context, changes []Change) (*Preview, error) {
	validator := &validate.Validator{}
	validator.Custom("changes", len(changes) == 0, "No changes given")
	validator.Custom("changes", len(changes) > MaxChanges, fmt.Sprintf("At most %d changes per request", MaxChanges))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	items, err := service.items(ctx)
	if err != nil {
		return nil, err
	}
	byRef := make(map[catalog.Ref]Item, len(items))
	for _, item := range items {
		byRef[item.Ref()] = item
	}

	preview := &Preview{Changes: []Planned{}, Errors: []string{}}
	for _, change := range changes {
		item, ok := byRef[change.Ref()]
		if !ok {
			preview.Errors = append(preview.Errors, fmt.Sprintf("%d/%d: not in the catalog", change.ProductID, change.VariationID))
			continue
		}

		planned, err := plan(item, change)
		if err != nil {
			preview.Errors = append(preview.Errors, err.Error())
			continue
		}
		if planned != nil {
			preview.Changes = append(preview.Changes, *planned)
		}
	}
	return preview, nil
}

/*
Apply validates changes and pushes the valid ones to the store.

Parameters:
  - ctx: context.Context
  - actor: string user id stored as changed_by
  - changes: []Change
  - source: string, [SourceManual] or [SourceExcel]

Returns:
  - *ApplyResult: Per-row counts; validation and push errors are listed together
  - error: VALIDATION for an empty request, or storage failures

Description: Every field is logged as pending under a new ULID batch before
its row is pushed. A pushed row is marked success and written to the local
catalog; a refused row is marked failed with the store's error.
*/
func (service *Service) Apply(ctx context.Context, actor string, changes []Change, source string) (*ApplyResult, error) {
	preview, err := service.Preview(ctx, changes)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{BatchID: ulid.Make().String(), Errors: preview.Errors}
	if len(preview.Changes) == 0 {
		return result, nil
	}

	logger := ctxutil.GetLogger(ctx)
	for _, planned := range preview.Changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := service.push(ctx, actor, result.BatchID, planned); err != nil {
			logger.Warn("stock_push_failed",
				slog.Int64("product_id", planned.ProductID),
				slog.Int64("variation_id", planned.VariationID),
				slog.String("error", err.Error()),
			)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", planned.Name, err.Error()))
			continue
		}
		result.Success++
	}

	service.record(ctx, actor, activity.ActionSync,
		fmt.Sprintf("Updated %d products (%d failed)", result.Success, result.Failed),
		map[string]any{"batch_id": result.BatchID, "success": result.Success, "failed": result.Failed, "source": source},
		result.Failed == 0)
	return result, nil
}

// push logs, sends and settles one planned row.
func (service *Service) push(ctx context.Context, actor, batchID string, planned Planned) error {
	entries := make([]HistoryEntry, 0, len(planned.Fields))
	for _, field := range planned.Fields {
		entries = append(entries, HistoryEntry{
			ID:          uuid.New(),
			BatchID:     batchID,
			ProductID:   planned.ProductID,
			VariationID: planned.VariationID,
			Field:       field.Field,
			OldValue:    field.format(field.Old),
			NewValue:    field.format(field.New),
			Status:      StatusPending,
			ChangedBy:   actor,
		})
	}
	if err := service.history.Log(ctx, entries); err != nil {
		return err
	}

	if err := service.store.UpdateProduct(ctx, planned.ProductID, planned.VariationID, planned.update()); err != nil {
		if markErr := service.history.Mark(ctx, batchID, planned.Ref, StatusFailed, err.Error()); markErr != nil {
			ctxutil.GetLogger(ctx).Error("stock_history_mark_failed", slog.String("error", markErr.Error()))
		}
		return err
	}

	if err := service.history.Mark(ctx, batchID, planned.Ref, StatusSuccess, ""); err != nil {
		return err
	}

	patch := planned.patch()
	patch.LastSynced = pointer.To(service.now())
	return service.catalog.Update(ctx, planned.Ref, patch, actor)
}

/*
SyncFromStore refreshes stock and prices of every catalog row from the store.

Description: A row the store answers 404 for is marked deleted. Other
failures are counted and the sync goes on.
*/
func (service *Service) SyncFromStore(ctx context.Context, actor string) (*SyncResult, error) {
	products, err := service.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperr.Unprocessable("No products in the catalog. Sync the catalog first.")
	}

	var (
		mu     sync.Mutex
		result SyncResult
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	logger := ctxutil.GetLogger(ctx)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(syncWorkers)
	for _, product := range products {
		group.Go(func() error {
			ref := product.Ref()
			remote, err := service.store.GetProduct(groupCtx, ref.ProductID, ref.VariationID)
			switch {
			case woo.IsNotFound(err):
				if err := service.settings.Set(groupCtx, ref, nil, pointer.To(true), actor); err != nil {
					return err
				}
				count(&result.Deleted)
				return nil
			case err != nil:
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				logger.Warn("stock_sync_item_failed",
					slog.Int64("product_id", ref.ProductID),
					slog.Int64("variation_id", ref.VariationID),
					slog.String("error", err.Error()),
				)
				count(&result.Errors)
				return nil
			}

			patch := catalog.Patch{
				StockQuantity: pointer.To(remote.Stock()),
				RegularPrice:  pointer.To(woo.Amount(remote.RegularPrice)),
				SalePrice:     pointer.To(woo.Amount(remote.SalePrice)),
				LastSynced:    pointer.To(service.now()),
			}
			if err := service.catalog.Update(groupCtx, ref, patch, actor); err != nil {
				count(&result.Errors)
				return nil
			}
			count(&result.Updated)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	service.record(ctx, actor, activity.ActionSync, "Synced stock and prices from WooCommerce",
		map[string]any{"updated": result.Updated, "deleted": result.Deleted, "errors": result.Errors}, true)
	return &result, nil
}

// Statistics counts the catalog rows by list.
func (service *Service) Statistics(ctx context.Context) (*Statistics, error) {
	return service.settings.Statistics(ctx)
}

// History returns recent change entries, optionally of one batch.
func (service *Service) History(ctx context.Context, batchID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = DefaultHistoryLimit
	}
	return service.history.List(ctx, batchID, limit)
}

// # List Management

// SetUpdatable moves a row between the updatable and non-updatable lists.
func (service *Service) SetUpdatable(ctx context.Context, actor string, ref catalog.Ref, updatable bool) error {
	if err := service.settings.Set(ctx, ref, &updatable, nil, actor); err != nil {
		return err
	}
	service.record(ctx, actor, activity.ActionAdmin, fmt.Sprintf("Set %d/%d updatable=%t", ref.ProductID, ref.VariationID, updatable),
		map[string]any{"product_id": ref.ProductID, "variation_id": ref.VariationID, "is_updatable": updatable}, true)
	return nil
}

// MarkDeleted moves a row to the deleted list.
func (service *Service) MarkDeleted(ctx context.Context, actor string, ref catalog.Ref) error {
	return service.setDeleted(ctx, actor, ref, true)
}

// Restore takes a row off the deleted list.
func (service *Service) Restore(ctx context.Context, actor string, ref catalog.Ref) error {
	return service.setDeleted(ctx, actor, ref, false)
}

func (service *Service) setDeleted(ctx context.Context, actor string, ref catalog.Ref, deleted bool) error {
	if err := service.settings.Set(ctx, ref, nil, &deleted, actor); err != nil {
		return err
	}
	service.record(ctx, actor, activity.ActionAdmin, fmt.Sprintf("Set %d/%d deleted=%t", ref.ProductID, ref.VariationID, deleted),
		map[string]any{"product_id": ref.ProductID, "variation_id": ref.VariationID, "is_deleted": deleted}, true)
	return nil
}
