package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrDatabaseQuery = errors.New("database query failed")
)

// Database & Storage Specific Errors
var (
	ErrDeadlock             = errors.New("database deadlock")
	ErrSerializationFailure = errors.New("serialization failure")
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")
	ErrCheckConstraint      = errors.New("check constraint violation")
	ErrTransactionFailed    = errors.New("transaction failed")
)

// PostgreSQL SQLSTATE codes we map explicitly.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgRestrictViolation    = "23001"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// NewDatabaseError creates a new database error with details about the operation.
// Errors that are already *ApiErr or *ValidationErrors pass through untouched so
// repositories can return them from inside transactions.
func NewDatabaseError(operation, entity string, cause error) error {
	if cause == nil {
		return nil
	}

	var apiErr *ApiErr
	if errors.As(cause, &apiErr) {
		return apiErr
	}
	var validationErr *ValidationErrors
	if errors.As(cause, &validationErr) {
		return validationErr
	}

	details := fmt.Sprintf("Failed to %s %s", operation, entity)

	if errors.Is(cause, gorm.ErrRecordNotFound) {
		return &ApiErr{
			StatusCode: http.StatusNotFound,
			err:        fmt.Errorf("%s %w", entity, ErrNotFound),
			Details:    details,
			Cause:      cause,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(cause, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ApiErr{
				StatusCode: http.StatusConflict,
				err:        fmt.Errorf("%s %w", entity, ErrAlreadyExists),
				Details:    details,
				Cause:      cause,
			}
		case pgForeignKeyViolation, pgRestrictViolation:
			return &ApiErr{
				StatusCode: http.StatusConflict,
				err:        fmt.Errorf("%s: %w", entity, ErrForeignKeyConstraint),
				Details:    "The resource is referenced by other records or references a missing one",
				Cause:      cause,
			}
		case pgCheckViolation:
			return &ApiErr{
				StatusCode: http.StatusBadRequest,
				err:        fmt.Errorf("%s: %w", entity, ErrCheckConstraint),
				Details:    pgErr.ConstraintName,
				Cause:      cause,
			}
		case pgSerializationFailure:
			return NewSerializationFailureError(operation, cause)
		case pgDeadlockDetected:
			return NewDeadlockError(operation, cause)
		}
	}

	if errors.Is(cause, gorm.ErrInvalidTransaction) {
		return NewTransactionFailedError(operation, cause)
	}

	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseQuery,
		Details:    details,
		Cause:      cause,
	}
}

func NewDeadlockError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrDeadlock,
		Details:    fmt.Sprintf("Deadlock detected during %s", operation),
		Cause:      cause,
	}
}

func NewSerializationFailureError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrSerializationFailure,
		Details:    fmt.Sprintf("Concurrent update conflict during %s", operation),
		Cause:      cause,
	}
}

func NewTransactionFailedError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrTransactionFailed,
		Details:    fmt.Sprintf("Transaction failed during %s", operation),
		Cause:      cause,
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a PostgreSQL FK or RESTRICT violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == pgForeignKeyViolation || pgErr.Code == pgRestrictViolation)
}

