// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all entities. Each
// store struct wraps a *sql.DB and exposes typed query methods. Finders
// return (nil, nil) when no row matches; callers decide whether that is an
// error.
package store

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"probitcms/internal/apperr"
)

// PostgreSQL error codes mapped to domain conflicts.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// psql builds queries with $n placeholders.
//
// Never pass a single uuid.UUID inside sq.Eq: the type is a byte array and
// squirrel expands arrays into IN lists. Use sq.Expr("col = ?", id) instead.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// wrapErr maps constraint violations to apperr conflicts and wraps every
// other failure with the operation name.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict(op, "a record with the same "+constraintSubject(pgErr)+" already exists", err)
		case pgForeignKeyViolation:
			return apperr.Conflict(op, "the record is still referenced by other records", err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintSubject(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "idx_blog_posts_slug":
		return "slug"
	case "users_email_key":
		return "email"
	case "orders_checkout_session_id_key":
		return "checkout session"
	}
	return "key"
}
