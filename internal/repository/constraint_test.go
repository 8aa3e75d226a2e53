package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	apperrors "cuentas/internal/errors"
)

func TestClassifyConstraint(t *testing.T) {
	boom := errors.New("connection reset by peer")

	tests := []struct {
		name          string
		err           error
		expectedField string
		expectedErr   error
	}{
		{
			name:          "mysql duplicate username whose value mentions email",
			err:           &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'email_guy' for key 'accounts.idx_accounts_username'"},
			expectedField: "username",
		},
		{
			name:          "mysql duplicate email",
			err:           fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'accounts.idx_accounts_email'"}),
			expectedField: "email",
		},
		{
			name:        "mysql row referenced",
			err:         &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row: a foreign key constraint fails"},
			expectedErr: apperrors.ErrDependentRecords,
		},
		{
			name:        "mysql other error passes through",
			err:         &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"},
			expectedErr: &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"},
		},
		{
			name:          "postgres unique email",
			err:           &pgconn.PgError{Code: "23505", ConstraintName: "idx_accounts_email", Detail: "Key (email)=(a@b.c) already exists."},
			expectedField: "email",
		},
		{
			name:          "postgres duplicate username whose value mentions email",
			err:           &pgconn.PgError{Code: "23505", ConstraintName: "idx_accounts_username", Detail: "Key (username)=(email_guy) already exists."},
			expectedField: "username",
		},
		{
			name:          "postgres detail column without constraint name",
			err:           &pgconn.PgError{Code: "23505", Detail: "Key (username)=(correo_guy) already exists."},
			expectedField: "username",
		},
		{
			name:          "postgres detail without key clause",
			err:           &pgconn.PgError{Code: "23505", Detail: "duplicate of email@x.com"},
			expectedField: "",
		},
		{
			name:        "postgres foreign key",
			err:         &pgconn.PgError{Code: "23503", ConstraintName: "fk_appointments_account"},
			expectedErr: apperrors.ErrDependentRecords,
		},
		{
			name:          "sqlite unique username",
			err:           errors.New("constraint failed: UNIQUE constraint failed: accounts.username (2067)"),
			expectedField: "username",
		},
		{
			name:          "legacy unique correo",
			err:           errors.New("Violation of UNIQUE KEY constraint 'UQ_Cuenta'. Cannot insert duplicate key in object 'dbo.Cuenta' for key 'UQ_Cuenta_Correo'"),
			expectedField: "email",
		},
		{
			name:          "unique without recognisable column",
			err:           errors.New("duplicate key value violates unique constraint \"uq_misc\""),
			expectedField: "",
		},
		{
			name:        "sqlite foreign key",
			err:         errors.New("constraint failed: FOREIGN KEY constraint failed (787)"),
			expectedErr: apperrors.ErrDependentRecords,
		},
		{
			name:        "unrelated error",
			err:         boom,
			expectedErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConstraint(tt.err)

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, got)
				return
			}
			var conflictErr *apperrors.ConflictError
			if assert.ErrorAs(t, got, &conflictErr) {
				assert.Equal(t, tt.expectedField, conflictErr.Field)
			}
		})
	}

	assert.NoError(t, ClassifyConstraint(nil))
}
