// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
)

// Wrap inspects a database error and classifies it.
//
// Missing rows become NOT_FOUND for resource, unique and foreign-key violations
// become CONFLICT, and everything else is returned wrapped with action so the
// caller's log keeps the storage context.
func Wrap(err error, resource, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Constraint violations are client errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists").WithCause(err)
		case pgerrcode.ForeignKeyViolation:
			return apperr.Conflict(resource + " is still referenced").WithCause(err)
		}
	}

	// 3. Unknown query errors keep their cause
	return fmt.Errorf("%s: %w", action, err)
}
