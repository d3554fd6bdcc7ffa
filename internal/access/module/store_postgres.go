// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/dberr"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
)

// # Repository Implementations

// PostgresCatalogRepository implements [CatalogRepository] using pgx.
type PostgresCatalogRepository struct {
	db postgres.DB
}

// NewCatalogRepository creates the Postgres module catalog.
func NewCatalogRepository(db postgres.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// PostgresGrantRepository implements [GrantRepository] using pgx.
type PostgresGrantRepository struct {
	db postgres.DB
}

// NewGrantRepository creates the Postgres grant store.
func NewGrantRepository(db postgres.DB) *PostgresGrantRepository {
	return &PostgresGrantRepository{db: db}
}

var (
	moduleTable = schema.AccessModule
	grantTable  = schema.AccessGrant

	moduleColumns = strings.Join(moduleTable.Columns(), ", ")

	orderByDisplay = fmt.Sprintf("ORDER BY %s ASC, %s ASC", moduleTable.DisplayOrder, moduleTable.Name)
)

// scanModules drains rows selected with [moduleColumns].
func scanModules(rows pgx.Rows) ([]Module, error) {
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var item Module
		if err := rows.Scan(
			&item.Key, &item.Name, &item.Icon, &item.Description,
			&item.IsActive, &item.DisplayOrder, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		modules = append(modules, item)
	}
	return modules, rows.Err()
}

// # CatalogRepository Methods

/*
ListActive retrieves every active catalog row.

Returns:
  - []Module: Ordered by display order then name
  - error: Query failures
*/
func (repository *PostgresCatalogRepository) ListActive(ctx context.Context) ([]Module, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = TRUE %s`,
		moduleColumns, moduleTable.Table, moduleTable.IsActive, orderByDisplay)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_module_repo_list_active_failed: %w", err)
	}
	modules, err := scanModules(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres_module_repo_list_active_failed: %w", err)
	}
	return modules, nil
}

// ListAll retrieves the whole catalog for the admin console.
func (repository *PostgresCatalogRepository) ListAll(ctx context.Context) ([]Module, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s %s`, moduleColumns, moduleTable.Table, orderByDisplay)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_module_repo_list_all_failed: %w", err)
	}
	modules, err := scanModules(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres_module_repo_list_all_failed: %w", err)
	}
	return modules, nil
}

/*
FindByKey retrieves one module.

Returns:
  - *Module: Hydrated entity
  - error: apperr.NotFound or query failure
*/
func (repository *PostgresCatalogRepository) FindByKey(ctx context.Context, key Key) (*Module, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, moduleColumns, moduleTable.Table, moduleTable.Key)

	item := &Module{}
	err := repository.db.QueryRow(ctx, query, key).Scan(
		&item.Key, &item.Name, &item.Icon, &item.Description,
		&item.IsActive, &item.DisplayOrder, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Module", "postgres_module_repo_find_failed")
	}
	return item, nil
}

// Create inserts a module, stamping both timestamps from the database clock.
func (repository *PostgresCatalogRepository) Create(ctx context.Context, item *Module) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s`,
		moduleTable.Table, moduleTable.Key, moduleTable.Name, moduleTable.Icon, moduleTable.Description, moduleTable.IsActive, moduleTable.DisplayOrder,
		moduleTable.CreatedAt, moduleTable.UpdatedAt,
	)

	err := repository.db.QueryRow(ctx, query,
		item.Key, item.Name, item.Icon, item.Description, item.IsActive, item.DisplayOrder,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "Module", "postgres_module_repo_create_failed")
	}
	return nil
}

// Update changes name, icon, description and display order.
func (repository *PostgresCatalogRepository) Update(ctx context.Context, item *Module) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5, %s = now()
		WHERE %s = $1`,
		moduleTable.Table, moduleTable.Name, moduleTable.Icon, moduleTable.Description, moduleTable.DisplayOrder, moduleTable.UpdatedAt, moduleTable.Key,
	)

	tag, err := repository.db.Exec(ctx, query, item.Key, item.Name, item.Icon, item.Description, item.DisplayOrder)
	if err != nil {
		return fmt.Errorf("postgres_module_repo_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Module")
	}
	return nil
}

// SetActive flips the isactive flag.
func (repository *PostgresCatalogRepository) SetActive(ctx context.Context, key Key, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = now() WHERE %s = $1`,
		moduleTable.Table, moduleTable.IsActive, moduleTable.UpdatedAt, moduleTable.Key)

	tag, err := repository.db.Exec(ctx, query, key, active)
	if err != nil {
		return fmt.Errorf("postgres_module_repo_set_active_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Module")
	}
	return nil
}

// Delete removes the row; the grant foreign key refuses while it is referenced.
func (repository *PostgresCatalogRepository) Delete(ctx context.Context, key Key) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, moduleTable.Table, moduleTable.Key)

	tag, err := repository.db.Exec(ctx, query, key)
	if err != nil {
		return dberr.Wrap(err, "Module", "postgres_module_repo_delete_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Module")
	}
	return nil
}

// # GrantRepository Methods

/*
ListGrantedModules joins the grants of userID with the active catalog.

Parameters:
  - ctx: context.Context
  - userID: string (UUID)

Returns:
  - []Module: Granted, active modules in display order
  - error: Query failures
*/
func (repository *PostgresGrantRepository) ListGrantedModules(ctx context.Context, userID string) ([]Module, error) {
	columns := make([]string, 0, len(moduleTable.Columns()))
	for _, column := range moduleTable.Columns() {
		columns = append(columns, "m."+column)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s g
		JOIN %s m ON m.%s = g.%s
		WHERE g.%s = $1 AND m.%s = TRUE
		ORDER BY m.%s ASC, m.%s ASC`,
		strings.Join(columns, ", "),
		grantTable.Table, moduleTable.Table, moduleTable.Key, grantTable.ModuleKey,
		grantTable.UserID, moduleTable.IsActive,
		moduleTable.DisplayOrder, moduleTable.Name,
	)

	rows, err := repository.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_grant_repo_list_modules_failed: %w", err)
	}
	modules, err := scanModules(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres_grant_repo_list_modules_failed: %w", err)
	}
	return modules, nil
}

// ListGrants returns the grant rows of userID in key order.
func (repository *PostgresGrantRepository) ListGrants(ctx context.Context, userID string) ([]Grant, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, COALESCE(%s::text, ''), %s
		FROM %s WHERE %s = $1 ORDER BY %s`,
		grantTable.UserID, grantTable.ModuleKey, grantTable.GrantedBy, grantTable.GrantedAt,
		grantTable.Table, grantTable.UserID, grantTable.ModuleKey,
	)

	rows, err := repository.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_grant_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var grant Grant
		if err := rows.Scan(&grant.UserID, &grant.ModuleKey, &grant.GrantedBy, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("postgres_grant_repo_scan_failed: %w", err)
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// ListGrantees returns the user ids granted key, in id order.
func (repository *PostgresGrantRepository) ListGrantees(ctx context.Context, key Key) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s = $1 ORDER BY %s`,
		grantTable.UserID, grantTable.Table, grantTable.ModuleKey, grantTable.UserID,
	)

	rows, err := repository.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("postgres_grant_repo_list_grantees_failed: %w", err)
	}

	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("postgres_grant_repo_scan_failed: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

// Replace deletes the current grant set and inserts keys in one transaction.
func (repository *PostgresGrantRepository) Replace(ctx context.Context, userID string, keys []Key, grantedBy string) error {
	return postgres.WithTx(ctx, repository.db, func(tx pgx.Tx) error {
		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, grantTable.Table, grantTable.UserID)
		if _, err := tx.Exec(ctx, deleteQuery, userID); err != nil {
			return fmt.Errorf("postgres_grant_repo_replace_failed: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, NULLIF($3, '')::uuid)`,
			grantTable.Table, grantTable.UserID, grantTable.ModuleKey, grantTable.GrantedBy,
		)
		for _, key := range keys {
			if _, err := tx.Exec(ctx, insertQuery, userID, key, grantedBy); err != nil {
				return dberr.Wrap(err, "Grant", "postgres_grant_repo_replace_failed")
			}
		}
		return nil
	})
}

// Grant inserts one row, ignoring an existing one.
func (repository *PostgresGrantRepository) Grant(ctx context.Context, userID string, key Key, grantedBy string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, NULLIF($3, '')::uuid)
		ON CONFLICT (%s, %s) DO NOTHING`,
		grantTable.Table, grantTable.UserID, grantTable.ModuleKey, grantTable.GrantedBy, grantTable.UserID, grantTable.ModuleKey,
	)

	if _, err := repository.db.Exec(ctx, query, userID, key, grantedBy); err != nil {
		return dberr.Wrap(err, "Grant", "postgres_grant_repo_grant_failed")
	}
	return nil
}

// Revoke deletes one row.
func (repository *PostgresGrantRepository) Revoke(ctx context.Context, userID string, key Key) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`, grantTable.Table, grantTable.UserID, grantTable.ModuleKey)

	if _, err := repository.db.Exec(ctx, query, userID, key); err != nil {
		return fmt.Errorf("postgres_grant_repo_revoke_failed: %w", err)
	}
	return nil
}
