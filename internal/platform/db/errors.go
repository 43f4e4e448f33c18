package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ConstraintViolation returns the violated constraint name when err is a
// Postgres error with the given SQLSTATE code.
func ConstraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func IsCheckViolation(err error) bool {
	_, ok := ConstraintViolation(err, CodeCheckViolation)
	return ok
}

func IsForeignKeyViolation(err error) bool {
	_, ok := ConstraintViolation(err, CodeForeignKeyViolation)
	return ok
}
