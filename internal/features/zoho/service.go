// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package zoho

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/document"
	"github.com/taibuivan/opsdash/internal/platform/objstore"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// # Limits

const (
	// MaxRangeDays bounds one export.
	MaxRangeDays = 92

	// MaxSequence is the largest starting invoice sequence.
	MaxSequence = 9_999_999

	// MaxPrefixLength bounds the invoice prefix.
	MaxPrefixLength = 32

	// PreviewLines is the number of lines returned by a preview.
	PreviewLines = 50
)

// DefaultPrefix is the invoice prefix used when none is given.
const DefaultPrefix = "ECHE/2526/"

// ExportFilename is the name of the downloaded bundle.
const ExportFilename = "orders_export.zip"

// OrderSource is the store the orders come from. [*woo.Client] implements it.
type OrderSource interface {
	FetchOrders(ctx context.Context, start, end time.Time) ([]woo.Order, error)
}

// Store keeps the saved item database. [*objstore.Client] implements it.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Input is one export request.
type Input struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	InvoicePrefix string `json:"invoice_prefix"`
	StartSequence int    `json:"start_sequence"`
}

func (in *Input) parse() (time.Time, time.Time, error) {
	if in.InvoicePrefix == "" {
		in.InvoicePrefix = DefaultPrefix
	}

	validator := &validate.Validator{}
	start, end := validator.DateRange("start_date", in.StartDate, "end_date", in.EndDate, MaxRangeDays)
	validator.MaxLen("invoice_prefix", in.InvoicePrefix, MaxPrefixLength)
	validator.Range("start_sequence", in.StartSequence, 1, MaxSequence)
	return start, end, validator.Err()
}

// Preview is the on-screen view of an export.
type Preview struct {
	Lines        []Line        `json:"lines"`
	LineCount    int           `json:"line_count"`
	Replacements []Replacement `json:"replacements"`
	Summary      Summary       `json:"summary"`
	Warnings     []string      `json:"warnings"`
}

// batch is one computed export.
type batch struct {
	start, end   time.Time
	lines        []Line
	replacements []Replacement
	summary      Summary
	warnings     []string
}

// Service runs the woocommerce_zoho_export operations.
type Service struct {
	source   OrderSource
	store    Store
	recorder activity.Recorder
}

// NewService constructs the Zoho export [Service].
func NewService(source OrderSource, store Store, recorder activity.Recorder) *Service {
	return &Service{source: source, store: store, recorder: recorder}
}

// record appends an entry for the export module.
func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any, success bool) {
	service.recorder.Record(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyWooZohoExport),
		Description: description,
		Metadata:    metadata,
		Success:     success,
	})
}

// # Item Database

func (service *Service) parseUpload(ctx context.Context, actor string, upload *requestutil.Upload) (*ItemDatabase, error) {
	if upload.Size > constants.MaxUploadSize {
		return nil, apperr.ValidationError(fmt.Sprintf("File too large (max %d MB)", constants.MaxUploadSize>>20))
	}
	items, err := ParseItemDatabase(upload.Filename, upload.Data)
	if err != nil {
		service.record(ctx, actor, activity.ActionModuleError, "Error reading item database: "+err.Error(), nil, false)
		return nil, err
	}
	return items, nil
}

/*
SaveItemDatabase validates upload and keeps it as the default item database.

Description: The mapping is stored normalized as one xlsx sheet with the four
known columns, whatever the upload format was.

Returns:
  - *ItemDatabase: The parsed mapping
  - error: VALIDATION_ERROR for unreadable files, or the store failure
*/
func (service *Service) SaveItemDatabase(ctx context.Context, actor string, upload *requestutil.Upload) (*ItemDatabase, error) {
	items, err := service.parseUpload(ctx, actor, upload)
	if err != nil {
		return nil, err
	}

	data, err := items.Workbook()
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("zoho_item_workbook_failed: %w", err))
	}
	if err := service.store.Put(ctx, ItemDatabaseKey, data, constants.ContentTypeXLSX); err != nil {
		return nil, apperr.Internal(fmt.Errorf("zoho_item_save_failed: %w", err))
	}

	service.record(ctx, actor, activity.ActionFileUpload, "Saved item database: "+upload.Filename,
		map[string]any{"filename": upload.Filename, "size_bytes": upload.Size, "items": items.Len()}, true)
	return items, nil
}

// SavedItemDatabase loads the stored item database. It is nil when none was saved.
func (service *Service) SavedItemDatabase(ctx context.Context) (*ItemDatabase, error) {
	data, err := service.store.Get(ctx, ItemDatabaseKey)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("zoho_item_load_failed: %w", err)
	}
	return ParseItemDatabase(ItemDatabaseKey, data)
}

// itemDatabase picks the uploaded mapping, then the saved one. A saved
// database that cannot be read is logged and the export runs unmapped.
func (service *Service) itemDatabase(ctx context.Context, actor string, upload *requestutil.Upload) (*ItemDatabase, error) {
	if upload != nil {
		return service.parseUpload(ctx, actor, upload)
	}

	items, err := service.SavedItemDatabase(ctx)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("zoho_item_database_unavailable", slog.Any("error", err))
		return &ItemDatabase{Warnings: []string{"The saved item database could not be read. Item names are not mapped."}}, nil
	}
	return items, nil
}

// # Export

/*
build fetches the range and computes lines and summary.

Description: Empty ranges and ranges without completed orders are logged as
module use and refused with UNPROCESSABLE, so no empty bundle is produced.
*/
func (service *Service) build(ctx context.Context, actor string, in Input, upload *requestutil.Upload) (*batch, error) {
	start, end, err := in.parse()
	if err != nil {
		return nil, err
	}

	items, err := service.itemDatabase(ctx, actor, upload)
	if err != nil {
		return nil, err
	}

	span := map[string]any{"date_from": in.StartDate, "date_to": in.EndDate}
	service.record(ctx, actor, activity.ActionModuleUse,
		fmt.Sprintf("Started WooCommerce export for %s to %s", in.StartDate, in.EndDate), span, true)

	orders, err := service.source.FetchOrders(ctx, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		service.record(ctx, actor, activity.ActionModuleError, "Error fetching orders: "+err.Error(), span, false)
		return nil, apperr.BadGateway("Failed to fetch orders from WooCommerce", err)
	}
	if len(orders) == 0 {
		service.record(ctx, actor, activity.ActionModuleUse,
			fmt.Sprintf("No orders found for %s to %s", in.StartDate, in.EndDate), span, true)
		return nil, apperr.Unprocessable("No orders found in this date range")
	}

	completed := Completed(orders)
	if len(completed) == 0 {
		service.record(ctx, actor, activity.ActionModuleUse,
			fmt.Sprintf("No completed orders for %s to %s", in.StartDate, in.EndDate), span, true)
		return nil, apperr.Unprocessable("No completed orders found in this date range")
	}

	lines, replacements := BuildLines(completed, items, in.InvoicePrefix, in.StartSequence)
	result := &batch{
		start:        start,
		end:          end,
		lines:        lines,
		replacements: replacements,
		summary:      Summarize(len(orders), completed, in.InvoicePrefix, in.StartSequence),
	}
	if items != nil {
		result.warnings = items.Warnings
	}
	return result, nil
}

// Preview returns the first [PreviewLines] lines, the replacements and the summary.
func (service *Service) Preview(ctx context.Context, actor string, in Input, upload *requestutil.Upload) (*Preview, error) {
	result, err := service.build(ctx, actor, in, upload)
	if err != nil {
		return nil, err
	}

	preview := &Preview{
		Lines:        result.lines[:min(len(result.lines), PreviewLines)],
		LineCount:    len(result.lines),
		Replacements: result.replacements,
		Summary:      result.summary,
		Warnings:     result.warnings,
	}
	if preview.Replacements == nil {
		preview.Replacements = []Replacement{}
	}
	if preview.Warnings == nil {
		preview.Warnings = []string{}
	}
	return preview, nil
}

/*
Export renders the range as the Zoho bundle.

Returns:
  - []byte: Zip with orders_{from}_{to}.csv and summary_report_{from}_{to}.xlsx
  - error: VALIDATION_ERROR, UNPROCESSABLE or BAD_GATEWAY
*/
func (service *Service) Export(ctx context.Context, actor string, in Input, upload *requestutil.Upload) ([]byte, error) {
	result, err := service.build(ctx, actor, in, upload)
	if err != nil {
		return nil, err
	}

	bundle, err := result.bundle()
	if err != nil {
		service.record(ctx, actor, activity.ActionModuleError, "Error preparing exports: "+err.Error(), nil, false)
		return nil, apperr.Internal(err)
	}

	ctxutil.GetLogger(ctx).Info("zoho_export_prepared",
		slog.Int("orders", result.summary.Completed),
		slog.Int("lines", len(result.lines)),
		slog.Int("replacements", len(result.replacements)),
	)
	service.record(ctx, actor, activity.ActionOrderDownload,
		fmt.Sprintf("Exported %d completed orders from %s to %s", result.summary.Completed, in.StartDate, in.EndDate),
		map[string]any{
			"orders_exported": result.summary.Completed,
			"date_from":       in.StartDate,
			"date_to":         in.EndDate,
		}, true)
	return bundle, nil
}

func (b *batch) bundle() ([]byte, error) {
	csvData, err := CSV(b.lines)
	if err != nil {
		return nil, fmt.Errorf("zoho_csv_failed: %w", err)
	}
	workbook, err := b.summary.Workbook()
	if err != nil {
		return nil, fmt.Errorf("zoho_summary_failed: %w", err)
	}

	csvName, workbookName := Filenames(b.start, b.end)
	return document.Zip(
		document.File{Name: csvName, Data: csvData},
		document.File{Name: workbookName, Data: workbook},
	)
}
