// Package pgerr translates postgres errors into repository errors.
package pgerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
)

func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation)
}

func IsCheckViolation(err error) bool {
	return hasCode(err, pgerrcode.CheckViolation)
}

// Translate maps well known database errors to the api errors.
// The original error is kept in the chain.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return api.ErrNoRows
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", api.ErrConflict, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", api.ErrForeignKey, err)
	case IsCheckViolation(err):
		return fmt.Errorf("%w: %s: %w", api.ErrCheck, Constraint(err), err)
	default:
		return err
	}
}

// Constraint returns the name of the violated constraint, if any
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
