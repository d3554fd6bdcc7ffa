// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
)

// Setting is the update policy of one catalog row.
type Setting struct {
	catalog.Ref
	IsUpdatable bool      `json:"is_updatable"`
	IsDeleted   bool      `json:"is_deleted"`
	UpdatedBy   string    `json:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// History status values.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// HistoryEntry is one field change pushed to the store.
type HistoryEntry struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	ProductID    int64     `json:"product_id"`
	VariationID  int64     `json:"variation_id"`
	Field        Field     `json:"field"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
	ChangedBy    string    `json:"changed_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Statistics counts the catalog rows by list.
type Statistics struct {
	Total        int `json:"total"`
	Updatable    int `json:"updatable"`
	NonUpdatable int `json:"non_updatable"`
	Deleted      int `json:"deleted"`
}

// SettingStore defines the data access contract for commerce.productsetting.
type SettingStore interface {
	All(ctx context.Context) ([]Setting, error)
	Set(ctx context.Context, ref catalog.Ref, updatable, deleted *bool, actor string) error
	Statistics(ctx context.Context) (*Statistics, error)
}

// HistoryStore defines the data access contract for commerce.stockhistory.
type HistoryStore interface {
	Log(ctx context.Context, entries []HistoryEntry) error
	Mark(ctx context.Context, batchID string, ref catalog.Ref, status, message string) error
	List(ctx context.Context, batchID string, limit int) ([]HistoryEntry, error)
}

// # Settings

// PostgresSettings implements [SettingStore] using pgx.
type PostgresSettings struct {
	db postgres.DB
}

// NewSettings creates the Postgres settings store.
func NewSettings(db postgres.DB) *PostgresSettings {
	return &PostgresSettings{db: db}
}

var (
	settingTable = schema.CommerceProductSetting
	historyTable = schema.CommerceStockHistory
	productTable = schema.CommerceProduct
)

// All returns every stored setting. Rows without one are updatable.
func (store *PostgresSettings) All(ctx context.Context) ([]Setting, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s`,
		settingTable.ProductID, settingTable.VariationID, settingTable.IsUpdatable,
		settingTable.IsDeleted, settingTable.UpdatedBy, settingTable.UpdatedAt, settingTable.Table)

	rows, err := store.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_settings_all_failed: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var setting Setting
		if err := rows.Scan(
			&setting.ProductID, &setting.VariationID, &setting.IsUpdatable,
			&setting.IsDeleted, &setting.UpdatedBy, &setting.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_settings_scan_failed: %w", err)
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

/*
Set upserts the setting of ref.

Parameters:
  - ctx: context.Context
  - ref: catalog.Ref of the row
  - updatable, deleted: *bool flags; nil keeps the stored value (or the default)
  - actor: string user id stored as updated_by

Returns:
  - error: Write failures
*/
func (store *PostgresSettings) Set(ctx context.Context, ref catalog.Ref, updatable, deleted *bool, actor string) error {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, %[5]s, %[6]s)
		VALUES ($1, $2, COALESCE($3::boolean, TRUE), COALESCE($4::boolean, FALSE), $5)
		ON CONFLICT (%[2]s, %[3]s) DO UPDATE SET
			%[4]s = COALESCE($3::boolean, %[1]s.%[4]s),
			%[5]s = COALESCE($4::boolean, %[1]s.%[5]s),
			%[6]s = EXCLUDED.%[6]s,
			%[7]s = now()`,
		settingTable.Table, settingTable.ProductID, settingTable.VariationID,
		settingTable.IsUpdatable, settingTable.IsDeleted, settingTable.UpdatedBy, settingTable.UpdatedAt)

	if _, err := store.db.Exec(ctx, query, ref.ProductID, ref.VariationID, updatable, deleted, actor); err != nil {
		return fmt.Errorf("postgres_settings_set_failed: %w", err)
	}
	return nil
}

// Statistics counts catalog rows by list, treating rows without a setting as updatable.
func (store *PostgresSettings) Statistics(ctx context.Context) (*Statistics, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT COALESCE(s.%[1]s, FALSE) AND COALESCE(s.%[2]s, TRUE)),
			COUNT(*) FILTER (WHERE NOT COALESCE(s.%[1]s, FALSE) AND NOT COALESCE(s.%[2]s, TRUE)),
			COUNT(*) FILTER (WHERE COALESCE(s.%[1]s, FALSE))
		FROM %[3]s p
		LEFT JOIN %[4]s s ON s.%[5]s = p.%[6]s AND s.%[7]s = p.%[8]s`,
		settingTable.IsDeleted, settingTable.IsUpdatable,
		productTable.Table, settingTable.Table,
		settingTable.ProductID, productTable.ProductID, settingTable.VariationID, productTable.VariationID)

	var stats Statistics
	if err := store.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Updatable, &stats.NonUpdatable, &stats.Deleted); err != nil {
		return nil, fmt.Errorf("postgres_settings_statistics_failed: %w", err)
	}
	return &stats, nil
}

// # History

// PostgresHistory implements [HistoryStore] using pgx.
type PostgresHistory struct {
	db postgres.DB
}

// NewHistory creates the Postgres change history store.
func NewHistory(db postgres.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// Log inserts entries in one transaction.
func (store *PostgresHistory) Log(ctx context.Context, entries []HistoryEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		historyTable.Table, historyTable.ID, historyTable.BatchID, historyTable.ProductID,
		historyTable.VariationID, historyTable.Field, historyTable.OldValue, historyTable.NewValue,
		historyTable.Status, historyTable.ChangedBy)

	err := postgres.WithTx(ctx, store.db, func(tx pgx.Tx) error {
		for _, entry := range entries {
			if _, err := tx.Exec(ctx, query,
				entry.ID, entry.BatchID, entry.ProductID, entry.VariationID, string(entry.Field),
				entry.OldValue, entry.NewValue, entry.Status, entry.ChangedBy,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres_history_log_failed: %w", err)
	}
	return nil
}

// Mark sets the push outcome of every entry of ref in batchID.
func (store *PostgresHistory) Mark(ctx context.Context, batchID string, ref catalog.Ref, status, message string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $4, %s = $5 WHERE %s = $1 AND %s = $2 AND %s = $3`,
		historyTable.Table, historyTable.Status, historyTable.ErrorMessage,
		historyTable.BatchID, historyTable.ProductID, historyTable.VariationID)

	if _, err := store.db.Exec(ctx, query, batchID, ref.ProductID, ref.VariationID, status, message); err != nil {
		return fmt.Errorf("postgres_history_mark_failed: %w", err)
	}
	return nil
}

// List returns the newest entries, optionally of one batch.
func (store *PostgresHistory) List(ctx context.Context, batchID string, limit int) ([]HistoryEntry, error) {
	var (
		where string
		args  []any
	)
	if batchID != "" {
		args = append(args, batchID)
		where = fmt.Sprintf("WHERE %s = $1", historyTable.BatchID)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s %s ORDER BY %s DESC LIMIT $%d`,
		historyTable.ID, historyTable.BatchID, historyTable.ProductID, historyTable.VariationID,
		historyTable.Field, historyTable.OldValue, historyTable.NewValue, historyTable.Status,
		historyTable.ErrorMessage, historyTable.ChangedBy, historyTable.CreatedAt,
		historyTable.Table, where, historyTable.CreatedAt, len(args))

	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_history_list_failed: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			entry HistoryEntry
			field string
		)
		if err := rows.Scan(
			&entry.ID, &entry.BatchID, &entry.ProductID, &entry.VariationID, &field,
			&entry.OldValue, &entry.NewValue, &entry.Status, &entry.ErrorMessage,
			&entry.ChangedBy, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_history_scan_failed: %w", err)
		}
		entry.Field = Field(field)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
