// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/pkg/csvsafe"
	"github.com/taibuivan/opsdash/pkg/uuid"
)

// Logger records and queries activity entries.
type Logger struct {
	repository Repository
	now        func() time.Time
}

// NewLogger constructs an activity [Logger].
func NewLogger(repository Repository) *Logger {
	return &Logger{repository: repository, now: time.Now}
}

/*
Record appends entry and never fails.

Description: The entry gets a fresh UUIDv7. Storage errors are written to
the request logger with the action type so the gap can be investigated,
then dropped.
*/
func (logger *Logger) Record(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()

	if err := logger.repository.Insert(ctx, &entry); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "activity_record_failed",
			slog.String("action_type", string(entry.ActionType)),
			slog.String("user_id", entry.UserID),
			slog.String("module_key", entry.ModuleKey),
			slog.Any("error", err),
		)
	}
}

// List returns entries matching filter with its limit clamped to [1, MaxLimit].
func (logger *Logger) List(ctx context.Context, filter Filter) ([]Entry, error) {
	filter.Limit = clampLimit(filter.Limit)
	entries, err := logger.repository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("activity_list_failed: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ListRecent returns the newest entries of every user.
func (logger *Logger) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	return logger.List(ctx, Filter{Limit: limit})
}

// ListByUser returns the newest entries of one user.
func (logger *Logger) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	return logger.List(ctx, Filter{UserID: userID, Limit: limit})
}

// ListByModule returns the newest entries of one module.
func (logger *Logger) ListByModule(ctx context.Context, moduleKey string, limit int) ([]Entry, error) {
	return logger.List(ctx, Filter{ModuleKey: moduleKey, Limit: limit})
}

// Stats summarizes the last days of activity.
func (logger *Logger) Stats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 {
		days = 7
	}
	since := logger.now().AddDate(0, 0, -days)
	stats, err := logger.repository.Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("activity_stats_failed: %w", err)
	}
	return stats, nil
}

// ExportHeader is the column set of the CSV download.
var ExportHeader = []string{"Timestamp", "User", "Action", "Module", "Description", "Success"}

/*
ExportCSV renders entries with every cell sanitized against formula injection.

Returns:
  - []byte: CSV body
  - string: Download name activity_logs_YYYYMMDD_HHMMSS.csv
  - error: Encoding failures
*/
func (logger *Logger) ExportCSV(entries []Entry) ([]byte, string, error) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		user := entry.UserEmail
		if user == "" {
			user = entry.UserID
		}
		rows = append(rows, []string{
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			user,
			string(entry.ActionType),
			entry.ModuleKey,
			entry.Description,
			strconv.FormatBool(entry.Success),
		})
	}

	body, err := csvsafe.Encode(ExportHeader, rows)
	if err != nil {
		return nil, "", fmt.Errorf("activity_export_failed: %w", err)
	}

	filename := fmt.Sprintf("activity_logs_%s.csv", logger.now().Format("20060102_150405"))
	return body, filename, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
