// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/document"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
)

// Column names an upload must carry, compared after trimming and lowercasing.
const (
	ColumnOrder = "order #"
	ColumnName  = "name"
)

// previewSize is the number of labels echoed back by Preview.
const previewSize = 10

// CleanStats reports what cleaning removed from an upload.
type CleanStats struct {
	Total      int `json:"total_entries"`
	Duplicates int `json:"duplicates_removed"`
	Empty      int `json:"empty_removed"`
	Valid      int `json:"valid_labels"`
}

/*
Clean extracts labels from an uploaded table.

Description: Values are trimmed. Duplicate (order, name) pairs keep their
first occurrence, then rows with an empty order or name are dropped.
*/
func Clean(table *document.Table) ([]Label, CleanStats, error) {
	columns, err := table.RequireColumns(map[string][]string{
		ColumnOrder: {ColumnOrder},
		ColumnName:  {ColumnName},
	})
	if err != nil {
		return nil, CleanStats{}, err
	}

	stats := CleanStats{Total: len(table.Rows)}
	seen := make(map[Label]struct{}, len(table.Rows))
	labels := make([]Label, 0, len(table.Rows))

	for _, row := range table.Rows {
		label := Label{
			OrderNo: document.Cell(row, columns[ColumnOrder]),
			Name:    document.Cell(row, columns[ColumnName]),
		}
		if _, dup := seen[label]; dup {
			stats.Duplicates++
			continue
		}
		seen[label] = struct{}{}

		if label.OrderNo == "" || label.Name == "" {
			stats.Empty++
			continue
		}
		labels = append(labels, label)
	}

	stats.Valid = len(labels)
	return labels, stats, nil
}

// Preview is the parsed upload before rendering.
type Preview struct {
	Stats  CleanStats `json:"stats"`
	Labels []Label    `json:"labels"`
}

// Output is a rendered download.
type Output struct {
	Body        []byte
	Filename    string
	ContentType string
	Labels      int
	Batches     int
}

// Service runs the shipping_label_generator operations.
type Service struct {
	recorder activity.Recorder
	now      func() time.Time
}

// NewService constructs the shipping label [Service].
func NewService(recorder activity.Recorder) *Service {
	return &Service{recorder: recorder, now: time.Now}
}

func (service *Service) record(ctx context.Context, actor string, action activity.ActionType, description string, metadata map[string]any, success bool) {
	service.recorder.Record(ctx, activity.Entry{
		UserID:      actor,
		ActionType:  action,
		ModuleKey:   string(module.KeyShippingLabelGenerator),
		Description: description,
		Metadata:    metadata,
		Success:     success,
	})
}

// load reads and cleans an upload, recording the file_upload entry.
func (service *Service) load(ctx context.Context, actor string, upload *requestutil.Upload) ([]Label, CleanStats, error) {
	service.record(ctx, actor, activity.ActionFileUpload, "Uploaded file: "+upload.Filename,
		map[string]any{"filename": upload.Filename, "size_bytes": upload.Size}, true)

	table, err := document.ReadTable(upload.Filename, upload.Data, "")
	if err != nil {
		return nil, CleanStats{}, err
	}

	labels, stats, err := Clean(table)
	if err != nil {
		return nil, stats, err
	}
	if len(labels) == 0 {
		return nil, stats, apperr.Unprocessable("No valid data found after cleaning")
	}
	return labels, stats, nil
}

// Preview cleans an upload and returns its statistics with the first labels.
func (service *Service) Preview(ctx context.Context, actor string, upload *requestutil.Upload) (*Preview, error) {
	labels, stats, err := service.load(ctx, actor, upload)
	if err != nil {
		return nil, err
	}
	return &Preview{Stats: stats, Labels: labels[:min(len(labels), previewSize)]}, nil
}

/*
Generate renders an upload into labels.

Parameters:
  - ctx: context.Context
  - actor: string user id credited in the activity log
  - upload: *requestutil.Upload holding an xlsx or csv sheet
  - opts: Options for page size and typography

Returns:
  - *Output: labels_YYYYMMDD_HHMM.pdf, or a zip of labels_batch_{n}.pdf when
    there are more than [BatchSize] labels
  - error: VALIDATION_ERROR, UNPROCESSABLE or rendering failures
*/
func (service *Service) Generate(ctx context.Context, actor string, upload *requestutil.Upload, opts Options) (*Output, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	labels, _, err := service.load(ctx, actor, upload)
	if err != nil {
		return nil, err
	}

	output, err := service.render(labels, opts)
	if err != nil {
		service.record(ctx, actor, activity.ActionModuleError, "PDF generation failed: "+err.Error(), nil, false)
		return nil, apperr.Internal(err)
	}

	service.record(ctx, actor, activity.ActionPDFGeneration,
		fmt.Sprintf("Generated %d shipping labels", output.Labels),
		map[string]any{
			"label_count":     output.Labels,
			"batch_count":     output.Batches,
			"font":            opts.Font,
			"dimensions":      fmt.Sprintf("%gx%gmm", opts.WidthMM, opts.HeightMM),
			"output_filename": output.Filename,
		}, true)
	return output, nil
}

func (service *Service) render(labels []Label, opts Options) (*Output, error) {
	stamp := service.now().Format("20060102_1504")

	if len(labels) <= BatchSize {
		body, err := Render(labels, opts)
		if err != nil {
			return nil, err
		}
		return &Output{
			Body:        body,
			Filename:    fmt.Sprintf("labels_%s.pdf", stamp),
			ContentType: constants.ContentTypePDF,
			Labels:      len(labels),
			Batches:     1,
		}, nil
	}

	var files []document.File
	for start := 0; start < len(labels); start += BatchSize {
		body, err := Render(labels[start:min(start+BatchSize, len(labels))], opts)
		if err != nil {
			return nil, err
		}
		files = append(files, document.File{Name: fmt.Sprintf("labels_batch_%d.pdf", len(files)+1), Data: body})
	}

	archive, err := document.Zip(files...)
	if err != nil {
		return nil, err
	}
	return &Output{
		Body:        archive,
		Filename:    fmt.Sprintf("labels_%s.zip", stamp),
		ContentType: constants.ContentTypeZIP,
		Labels:      len(labels),
		Batches:     len(files),
	}, nil
}
