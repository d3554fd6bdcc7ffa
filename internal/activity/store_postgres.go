// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
)

// Repository defines the data access contract for system.activitylog.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates the Postgres activity store.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	logTable     = schema.SystemActivityLog
	profileTable = schema.UserProfile
)

/*
Insert appends one entry.

Parameters:
  - ctx: context.Context
  - entry: *Entry with ID already assigned

Returns:
  - error: Insert failures
*/
func (repository *PostgresRepository) Insert(ctx context.Context, entry *Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, NULLIF($2, '')::uuid, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING %s`,
		logTable.Table,
		logTable.ID, logTable.UserID, logTable.ActionType, logTable.ModuleKey,
		logTable.Description, logTable.Metadata, logTable.Success,
		logTable.CreatedAt,
	)

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := repository.db.QueryRow(ctx, query,
		entry.ID, entry.UserID, string(entry.ActionType), entry.ModuleKey,
		entry.Description, metadata, entry.Success,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_activity_repo_insert_failed: %w", err)
	}
	return nil
}

/*
List returns the newest entries matching filter, joined with the user email.

Returns:
  - []Entry: Newest first, at most filter.Limit rows
  - error: Query failures
*/
func (repository *PostgresRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		conditions []string
		args       []any
	)
	addCondition := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("l.%s = $%d", column, len(args)))
	}

	if filter.UserID != "" {
		addCondition(logTable.UserID, filter.UserID)
	}
	if filter.ModuleKey != "" {
		addCondition(logTable.ModuleKey, filter.ModuleKey)
	}
	if filter.ActionType != "" {
		addCondition(logTable.ActionType, string(filter.ActionType))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.Limit)
	query := fmt.Sprintf(`
		SELECT l.%s, COALESCE(l.%s::text, ''), COALESCE(p.%s, ''), l.%s, COALESCE(l.%s, ''),
		       l.%s, l.%s, l.%s, l.%s
		FROM %s l
		LEFT JOIN %s p ON p.%s = l.%s
		%s
		ORDER BY l.%s DESC
		LIMIT $%d`,
		logTable.ID, logTable.UserID, profileTable.Email, logTable.ActionType, logTable.ModuleKey,
		logTable.Description, logTable.Metadata, logTable.Success, logTable.CreatedAt,
		logTable.Table,
		profileTable.Table, profileTable.ID, logTable.UserID,
		where,
		logTable.CreatedAt,
		len(args),
	)

	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_activity_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			action string
		)
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.UserEmail, &action, &entry.ModuleKey,
			&entry.Description, &entry.Metadata, &entry.Success, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_activity_repo_scan_failed: %w", err)
		}
		entry.ActionType = ActionType(action)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats aggregates entries created at or after since.
func (repository *PostgresRepository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*), COUNT(*) FILTER (WHERE NOT %s)
		FROM %s
		WHERE %s >= $1
		GROUP BY %s
		ORDER BY COUNT(*) DESC`,
		logTable.ActionType, logTable.Success,
		logTable.Table,
		logTable.CreatedAt,
		logTable.ActionType,
	)

	rows, err := repository.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres_activity_repo_stats_failed: %w", err)
	}
	defer rows.Close()

	stats := &Stats{Since: since, ByAction: []ActionCount{}}
	for rows.Next() {
		var (
			bucket ActionCount
			action string
		)
		if err := rows.Scan(&action, &bucket.Total, &bucket.Failed); err != nil {
			return nil, fmt.Errorf("postgres_activity_repo_stats_scan_failed: %w", err)
		}
		bucket.ActionType = ActionType(action)
		stats.Total += bucket.Total
		stats.Failed += bucket.Failed
		stats.ByAction = append(stats.ByAction, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_activity_repo_stats_failed: %w", err)
	}

	distinctQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM %s WHERE %s >= $1`,
		logTable.UserID, logTable.Table, logTable.CreatedAt)
	if err := repository.db.QueryRow(ctx, distinctQuery, since).Scan(&stats.ActiveUsers); err != nil {
		return nil, fmt.Errorf("postgres_activity_repo_stats_users_failed: %w", err)
	}

	return stats, nil
}
