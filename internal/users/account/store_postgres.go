// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/dberr"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates the Postgres account repository.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	accountTable = schema.UserAccount
	profileTable = schema.UserProfile

	profileColumns = strings.Join(profileTable.Columns(), ", ")
)

func scanProfile(row pgx.Row) (*auth.Profile, error) {
	var (
		profile auth.Profile
		role    string
	)
	if err := row.Scan(
		&profile.ID, &profile.Email, &profile.FullName, &role,
		&profile.IsActive, &profile.CreatedAt, &profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	profile.Role = sec.ParseRole(role)
	return &profile, nil
}

/*
FindProfile retrieves a profile by user id.

Parameters:
  - ctx: context.Context
  - userID: string (UUID)

Returns:
  - *auth.Profile: Hydrated profile
  - error: apperr.NotFound or query failure
*/
func (repository *PostgresRepository) FindProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, profileColumns, profileTable.Table, profileTable.ID)

	profile, err := scanProfile(repository.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, dberr.Wrap(err, "Profile", "postgres_account_repo_find_failed")
	}
	return profile, nil
}

// List returns profiles matching filter, newest first.
func (repository *PostgresRepository) List(ctx context.Context, filter Filter) ([]auth.Profile, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conditions = append(conditions, fmt.Sprintf("%s = $%d", profileTable.Role, len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", profileTable.IsActive, len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			profileTable.Email, len(args), profileTable.FullName, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s DESC`,
		profileColumns, profileTable.Table, where, profileTable.CreatedAt)

	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var profiles []auth.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_account_repo_scan_failed: %w", err)
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

/*
Create persists the credential row and the profile atomically.

Description: Accounts created by an administrator are confirmed on creation,
so the new user can sign in straight away.
*/
func (repository *PostgresRepository) Create(ctx context.Context, profile *auth.Profile, passwordHash string) error {
	insertAccount := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $4)`,
		accountTable.Table, accountTable.ID, accountTable.Email, accountTable.PasswordHash,
		accountTable.EmailConfirmedAt, accountTable.CreatedAt)

	insertProfile := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profileTable.Table, profileColumns)

	err := postgres.WithTx(ctx, repository.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertAccount, profile.ID, profile.Email, passwordHash, profile.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertProfile,
			profile.ID, profile.Email, profile.FullName, string(profile.Role),
			profile.IsActive, profile.CreatedAt, profile.UpdatedAt,
		)
		return err
	})
	return dberr.Wrap(err, "User", "postgres_account_repo_create_failed")
}

// Update writes full name, role and active flag of profile.
func (repository *PostgresRepository) Update(ctx context.Context, profile *auth.Profile) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5 WHERE %s = $1`,
		profileTable.Table, profileTable.FullName, profileTable.Role, profileTable.IsActive,
		profileTable.UpdatedAt, profileTable.ID)

	tag, err := repository.db.Exec(ctx, query,
		profile.ID, profile.FullName, string(profile.Role), profile.IsActive, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// Delete removes the credential row. The profile and grants cascade with it.
func (repository *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, accountTable.Table, accountTable.ID)

	tag, err := repository.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}
