// Package dberrors classifies PostgreSQL errors so repositories can map them
// to domain errors.
package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// IsConstraintViolation reports whether err is a PostgreSQL error with the
// given SQLSTATE code raised by constraintName. An empty name matches any constraint.
func IsConstraintViolation(err error, code, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	return IsConstraintViolation(err, CodeUniqueViolation, constraintName)
}

// IsForeignKeyError reports a foreign key violation on constraintName.
func IsForeignKeyError(err error, constraintName string) bool {
	return IsConstraintViolation(err, CodeForeignKeyViolation, constraintName)
}

// IsCheckError reports a CHECK constraint violation on constraintName.
func IsCheckError(err error, constraintName string) bool {
	return IsConstraintViolation(err, CodeCheckViolation, constraintName)
}
