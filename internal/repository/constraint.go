package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "cuentas/internal/errors"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ClassifyConstraint translates driver level constraint violations into domain errors.
// Unique violations become a *ConflictError naming the column, foreign key violations
// ErrDependentRecords. Anything else is returned unchanged.
func ClassifyConstraint(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDuplicateEntry:
			return apperrors.NewConflict(conflictField(mysqlErr.Message))
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return apperrors.ErrDependentRecords
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.NewConflict(pgConflictField(pgErr))
		case pgForeignKeyViolation:
			return apperrors.ErrDependentRecords
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint"), strings.Contains(msg, "duplicate key"):
		return apperrors.NewConflict(conflictField(msg))
	case strings.Contains(msg, "FOREIGN KEY constraint"), strings.Contains(msg, "REFERENCE constraint"):
		return apperrors.ErrDependentRecords
	}
	return err
}

// pgConflictField names the column from the constraint, falling back to the
// "Key (column)=(value)" detail when the server sent no constraint name.
func pgConflictField(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return conflictField(pgErr.ConstraintName)
	}
	detail := pgErr.Detail
	start := strings.Index(detail, "Key (")
	if start < 0 {
		return ""
	}
	detail = detail[start+len("Key ("):]
	end := strings.Index(detail, ")")
	if end < 0 {
		return ""
	}
	return conflictField(detail[:end])
}

// conflictField picks the unique column out of a driver message. Only the text after
// the key/constraint marker is inspected so a duplicated value cannot be mistaken
// for a column name.
func conflictField(detail string) string {
	detail = strings.ToLower(detail)
	for _, marker := range []string{"for key", "failed:"} {
		if i := strings.LastIndex(detail, marker); i >= 0 {
			detail = detail[i+len(marker):]
			break
		}
	}

	switch {
	case strings.Contains(detail, "email"), strings.Contains(detail, "correo"):
		return "email"
	case strings.Contains(detail, "username"), strings.Contains(detail, "usuario"):
		return "username"
	default:
		return ""
	}
}
