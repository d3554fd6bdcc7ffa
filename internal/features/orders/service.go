// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// # Limits

const (
	// MaxRangeDays bounds a fetch or export.
	MaxRangeDays = 31

	// MaxSyncDays bounds one cache sync.
	MaxSyncDays = 90

	// DefaultRetentionDays is the age beyond which ClearCache drops orders.
	DefaultRetentionDays = 90

	// OverviewDays is the window of the dashboard metrics.
	OverviewDays = 30
)

// DefaultStatuses are the statuses reported when none are requested.
var DefaultStatuses = []string{"processing", "pending", "cancelled", "refunded"}

// OrderSource is the store the orders come from. [*woo.Client] implements it.
type OrderSource interface {
	FetchOrders(ctx context.Context, start, end time.Time) ([]woo.Order, error)
}

// RangeInput is the date range of every order request, as sent by the client.
type RangeInput struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (in RangeInput) parse(maxDays int) (time.Time, time.Time, error) {
	validator := &validate.Validator{}
	start, end := validator.DateRange("start_date", in.StartDate, "end_date", in.EndDate, maxDays)
	return start, end, validator.Err()
}

// FetchResult is the extractor table for one range.
type FetchResult struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Count     int    `json:"count"`
	Rows      []Row  `json:"rows"`
}

// SyncResult counts the outcome of a cache sync.
type SyncResult struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// Overview is the order block of the dashboard.
type Overview struct {
	Since    time.Time     `json:"since"`
	Statuses []StatusTotal `json:"statuses"`
	LastSync *time.Time    `json:"last_sync"`
}

// Service runs the order_extractor operations.
type Service struct {
	source   OrderSource
	cache    Cache
	recorder activity.Recorder
	now      func() time.Time
}

// NewService constructs the order [Service].
func NewService(source OrderSource, cache Cache, recorder activity.Recorder) *Service {
	return &Service{source: source, cache: cache, recorder: recorder, now: time.Now}
}

// record appends an entry for the extractor module.
func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any, err error) {
	entry := activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyOrderExtractor),
		Description: description,
		Metadata:    metadata,
		Success:     err == nil,
	}
	if err != nil {
		entry.Description = fmt.Sprintf("%s: %v", description, err)
	}
	service.recorder.Record(ctx, entry)
}

// fetch pulls the range from the store, mapping upstream failures to 502.
func (service *Service) fetch(ctx context.Context, start, end time.Time) ([]woo.Order, error) {
	orders, err := service.source.FetchOrders(ctx, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.BadGateway("Failed to fetch orders from WooCommerce", err)
	}
	return orders, nil
}

/*
Fetch returns the extractor rows for a range of at most [MaxRangeDays].

Parameters:
  - ctx: context.Context
  - actor: string user id credited in the activity log
  - in: RangeInput with YYYY-MM-DD bounds (inclusive)

Returns:
  - *FetchResult: Rows ascending by order id
  - error: VALIDATION_ERROR or BAD_GATEWAY
*/
func (service *Service) Fetch(ctx context.Context, actor string, in RangeInput) (*FetchResult, error) {
	start, end, err := in.parse(MaxRangeDays)
	if err != nil {
		return nil, err
	}

	orders, err := service.fetch(ctx, start, end)
	metadata := map[string]any{"start_date": in.StartDate, "end_date": in.EndDate, "count": len(orders)}
	service.record(ctx, actor, activity.ActionOrderFetch, "Fetched orders", metadata, err)
	if err != nil {
		return nil, err
	}

	rows := BuildRows(orders)
	return &FetchResult{StartDate: in.StartDate, EndDate: in.EndDate, Count: len(rows), Rows: rows}, nil
}

// Export renders the range as the two-sheet workbook and returns it with its filename.
func (service *Service) Export(ctx context.Context, actor string, in RangeInput) ([]byte, string, error) {
	start, end, err := in.parse(MaxRangeDays)
	if err != nil {
		return nil, "", err
	}

	orders, err := service.fetch(ctx, start, end)
	if err != nil {
		service.record(ctx, actor, activity.ActionOrderDownload, "Order export failed", nil, err)
		return nil, "", err
	}

	body, err := Workbook(orders)
	if err != nil {
		return nil, "", apperr.Internal(fmt.Errorf("orders_workbook_failed: %w", err))
	}

	filename := ExportFilename(start, end)
	service.record(ctx, actor, activity.ActionOrderDownload, "Downloaded orders workbook",
		map[string]any{"filename": filename, "count": len(orders)}, nil)
	return body, filename, nil
}

/*
Sync copies the range into the order cache.

Description: Every fetched order is upserted on its id. A failed upsert is
logged and counted, the others still land.
*/
func (service *Service) Sync(ctx context.Context, actor string, in RangeInput) (*SyncResult, error) {
	start, end, err := in.parse(MaxSyncDays)
	if err != nil {
		return nil, err
	}

	orders, err := service.fetch(ctx, start, end)
	if err != nil {
		service.record(ctx, actor, activity.ActionSync, "Order cache sync failed", nil, err)
		return nil, err
	}

	logger := ctxutil.GetLogger(ctx)
	syncedAt := service.now()
	result := &SyncResult{Total: len(orders)}
	for _, order := range orders {
		if err := service.cache.Upsert(ctx, order, syncedAt); err != nil {
			logger.Warn("order_cache_upsert_failed", slog.Int64("order_id", order.ID), slog.Any("error", err))
			result.Errors++
			continue
		}
		result.Success++
	}

	service.record(ctx, actor, activity.ActionSync, "Synced order cache", map[string]any{
		"start_date": in.StartDate, "end_date": in.EndDate,
		"success": result.Success, "errors": result.Errors, "total": result.Total,
	}, nil)
	return result, nil
}

/*
StatusMetrics reports count and value per status for orders dated within
[start, end] (whole days).

Description: Statuses default to [DefaultStatuses]. Every requested status is
present in the result, in request order, with zeros when nothing matched.
*/
func (service *Service) StatusMetrics(ctx context.Context, start, end time.Time, statuses []string) ([]StatusTotal, error) {
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}

	totals, err := service.cache.StatusTotals(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]StatusTotal, len(totals))
	for _, total := range totals {
		byStatus[total.Status] = total
	}

	metrics := make([]StatusTotal, 0, len(statuses))
	for _, status := range statuses {
		total := byStatus[status]
		total.Status = status
		metrics = append(metrics, total)
	}
	return metrics, nil
}

// LastSyncTime returns when the cache was last written, or nil if never.
func (service *Service) LastSyncTime(ctx context.Context) (*time.Time, error) {
	return service.cache.LastSync(ctx)
}

// ClearCache drops cached orders older than daysOld days (default [DefaultRetentionDays]).
func (service *Service) ClearCache(ctx context.Context, actor string, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = DefaultRetentionDays
	}

	cutoff := service.now().AddDate(0, 0, -daysOld)
	deleted, err := service.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	service.record(ctx, actor, activity.ActionModuleUse, "Cleared order cache",
		map[string]any{"days_old": daysOld, "deleted": deleted}, nil)
	return deleted, nil
}

// Overview returns the status metrics of the last [OverviewDays] days and the last sync.
func (service *Service) Overview(ctx context.Context) (*Overview, error) {
	today := service.now()
	since := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).AddDate(0, 0, -OverviewDays)

	statuses, err := service.StatusMetrics(ctx, since, today, nil)
	if err != nil {
		return nil, err
	}

	last, err := service.cache.LastSync(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{Since: since, Statuses: statuses, LastSync: last}, nil
}
