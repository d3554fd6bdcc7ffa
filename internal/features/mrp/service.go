// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mrp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/document"
	"github.com/taibuivan/opsdash/internal/platform/objstore"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
)

const (
	// ChunkPages is the maximum page count of one output PDF.
	ChunkPages = 25

	// MaxSheetSize caps the quantity sheet upload.
	MaxSheetSize = 10 << 20

	// downloadWorkers bounds concurrent library downloads of one run.
	downloadWorkers = 4
)

// Check is the availability report for a quantity sheet.
type Check struct {
	Items         int     `json:"total_items"`
	ExpectedPages int     `json:"expected_pages"`
	ExpectedFiles int     `json:"expected_files"`
	Available     []int64 `json:"available"`
	Missing       []int64 `json:"missing"`
}

// Output is a merged download and what went into it.
type Output struct {
	Body           []byte  `json:"-"`
	Filename       string  `json:"filename"`
	ContentType    string  `json:"-"`
	TotalPages     int     `json:"total_pages"`
	ProcessedItems int     `json:"processed_items"`
	Files          int     `json:"num_files"`
	Missing        []int64 `json:"missing"`
}

// Service runs the mrp_label_generator operations.
type Service struct {
	library  *Library
	recorder activity.Recorder
	now      func() time.Time
}

// NewService constructs the MRP label [Service].
func NewService(library *Library, recorder activity.Recorder) *Service {
	return &Service{library: library, recorder: recorder, now: time.Now}
}

func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any, success bool) {
	service.recorder.Record(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyMRPLabelGenerator),
		Description: description,
		Metadata:    metadata,
		Success:     success,
	})
}

func (service *Service) readSheet(ctx context.Context, actor string, upload *requestutil.Upload) ([]Row, error) {
	service.record(ctx, actor, activity.ActionFileUpload, "Uploaded quantity sheet: "+upload.Filename,
		map[string]any{"filename": upload.Filename, "size_bytes": upload.Size}, true)

	if upload.Size > MaxSheetSize {
		return nil, apperr.ValidationError(fmt.Sprintf("File too large (max %d MB)", MaxSheetSize>>20))
	}
	return ReadSheet(upload.Filename, upload.Data)
}

// split partitions the distinct file ids of rows by library availability.
func split(rows []Row, available map[int64]bool) (found, missing []int64) {
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		id := row.FileID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if available[id] {
			found = append(found, id)
		} else {
			missing = append(missing, id)
		}
	}
	slices.Sort(found)
	slices.Sort(missing)
	return found, missing
}

// Check reports which labels of an upload exist in the library.
func (service *Service) Check(ctx context.Context, actor string, upload *requestutil.Upload) (*Check, error) {
	rows, err := service.readSheet(ctx, actor, upload)
	if err != nil {
		return nil, err
	}

	available, err := service.library.Available(ctx)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}

	check := &Check{Items: len(rows), Available: []int64{}, Missing: []int64{}}
	for _, row := range rows {
		check.ExpectedPages += row.Quantity
	}
	check.ExpectedFiles = (check.ExpectedPages + ChunkPages - 1) / ChunkPages

	found, missing := split(rows, available)
	check.Available = append(check.Available, found...)
	check.Missing = append(check.Missing, missing...)
	return check, nil
}

// download fetches the labels of ids concurrently.
func (service *Service) download(ctx context.Context, ids []int64) (map[int64][]byte, error) {
	var (
		mu     sync.Mutex
		labels = make(map[int64][]byte, len(ids))
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(downloadWorkers)
	for _, id := range ids {
		group.Go(func() error {
			data, err := service.library.Label(groupCtx, id)
			if errors.Is(err, objstore.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("mrp_label_%d_download_failed: %w", id, err)
			}
			mu.Lock()
			labels[id] = data
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

/*
Generate merges the labels of an upload.

Parameters:
  - ctx: context.Context
  - actor: string user id credited in the activity log
  - upload: *requestutil.Upload holding the quantity sheet

Returns:
  - *Output: mrp_labels_{basename}_{YYYYMMDD_HHMMSS}.pdf, or .zip of
    1.pdf..n.pdf when there are more than [ChunkPages] pages
  - error: UNPROCESSABLE when no label could be merged
*/
func (service *Service) Generate(ctx context.Context, actor string, upload *requestutil.Upload) (*Output, error) {
	rows, err := service.readSheet(ctx, actor, upload)
	if err != nil {
		return nil, err
	}

	available, err := service.library.Available(ctx)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}
	found, _ := split(rows, available)

	labels, err := service.download(ctx, found)
	if err != nil {
		service.record(ctx, actor, activity.ActionModuleError, "Label download failed: "+err.Error(), nil, false)
		return nil, apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}

	output := &Output{Missing: []int64{}}
	var documents [][]byte
	missing := make(map[int64]bool)
	for _, row := range rows {
		label, ok := labels[row.FileID()]
		if !ok {
			missing[row.FileID()] = true
			continue
		}
		for range row.Quantity {
			documents = append(documents, label)
		}
		output.ProcessedItems++
	}
	for id := range missing {
		output.Missing = append(output.Missing, id)
	}
	slices.Sort(output.Missing)

	if len(documents) == 0 {
		return nil, apperr.Unprocessable("No labels were merged. Check the sheet and the label library.")
	}

	if err := service.assemble(output, documents, upload.Filename); err != nil {
		service.record(ctx, actor, activity.ActionModuleError, "Label merge failed: "+err.Error(), nil, false)
		return nil, apperr.Internal(err)
	}

	ctxutil.GetLogger(ctx).Info("mrp_labels_generated",
		slog.Int("pages", output.TotalPages),
		slog.Int("files", output.Files),
		slog.Int("missing", len(output.Missing)),
	)
	service.record(ctx, actor, activity.ActionPDFGeneration,
		fmt.Sprintf("Merged %d MRP labels into %d file(s)", output.TotalPages, output.Files),
		map[string]any{
			"total_pages":     output.TotalPages,
			"processed_items": output.ProcessedItems,
			"num_files":       output.Files,
			"missing_pdfs":    len(output.Missing),
			"output_filename": output.Filename,
		}, true)
	return output, nil
}

// assemble merges documents and fills the body, name and page counts of output.
func (service *Service) assemble(output *Output, documents [][]byte, sheetName string) error {
	merged, err := document.MergePDF(documents...)
	if err != nil {
		return err
	}
	if output.TotalPages, err = document.PageCount(merged); err != nil {
		return err
	}

	basename := strings.TrimSuffix(filepath.Base(sheetName), filepath.Ext(sheetName))
	base := fmt.Sprintf("mrp_labels_%s_%s", basename, service.now().Format("20060102_150405"))

	if output.TotalPages <= ChunkPages {
		output.Body, output.Filename, output.ContentType, output.Files = merged, base+".pdf", constants.ContentTypePDF, 1
		return nil
	}

	chunks, err := document.SplitPDF(merged, ChunkPages)
	if err != nil {
		return err
	}
	files := make([]document.File, 0, len(chunks))
	for i, chunk := range chunks {
		files = append(files, document.File{Name: fmt.Sprintf("%d.pdf", i+1), Data: chunk})
	}
	archive, err := document.Zip(files...)
	if err != nil {
		return err
	}
	output.Body, output.Filename, output.ContentType, output.Files = archive, base+".zip", constants.ContentTypeZIP, len(files)
	return nil
}

// # Library

// Files lists the label library.
func (service *Service) Files(ctx context.Context) ([]LabelFile, error) {
	files, err := service.library.Files(ctx)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}
	return files, nil
}

// Upload adds PDFs to the library and records the outcome.
func (service *Service) Upload(ctx context.Context, actor string, uploads []requestutil.Upload) (*UploadResult, error) {
	result, err := service.library.Upload(ctx, uploads)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}

	if len(result.Uploaded) > 0 {
		service.record(ctx, actor, activity.ActionFileUpload,
			fmt.Sprintf("Uploaded %d PDF(s) to library", len(result.Uploaded)),
			map[string]any{"success_count": len(result.Uploaded), "error_count": len(result.Errors)}, true)
	}
	return result, nil
}

// Delete removes a label from the library and records it as an admin action.
func (service *Service) Delete(ctx context.Context, actor string, id int64) error {
	if err := service.library.Delete(ctx, id); err != nil {
		return apperr.ServiceUnavailable("Label library is unavailable").WithCause(err)
	}
	service.record(ctx, actor, activity.ActionAdmin, "Deleted PDF: "+labelKey(id),
		map[string]any{"filename": labelKey(id)}, true)
	return nil
}
