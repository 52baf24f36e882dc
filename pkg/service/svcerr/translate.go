package svcerr

import (
	"errors"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
)

// FromRepository maps a repository error to the service error classes.
// Missing rows become notFound, unknown references ErrInvalidReference and
// unique violations ErrAlreadyExists. An email used by another account and
// check violations are validation errors.
// Everything else is logged and reported as ErrStorage.
func FromRepository(l *log.Logger, op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrNoRows) && notFound != nil:
		return notFound
	case errors.Is(err, api.ErrEmailInUse):
		return Validation("email", "is used by another account")
	case errors.Is(err, api.ErrCheck):
		l.Debug("check constraint violated", log.String("op", op), log.ErrorField(err))
		return Validation("value", "out of range")
	case errors.Is(err, api.ErrForeignKey):
		return ErrInvalidReference
	case errors.Is(err, api.ErrConflict):
		return ErrAlreadyExists
	default:
		l.Error("storage operation failed", log.String("op", op), log.ErrorField(err))
		return ErrStorage
	}
}
