package svcerr

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTrackNotFound    = fmt.Errorf("track %w", ErrNotFound)
	ErrLapTimeNotFound  = fmt.Errorf("lap time %w", ErrNotFound)
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidReference = fmt.Errorf("%w: invalid reference", ErrValidation)
	ErrUpstream         = errors.New("upstream service failed")
	ErrStorage          = errors.New("storage failure")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// Validation wraps ErrValidation with details about the offending field
func Validation(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, fmt.Sprintf(format, args...))
}

// Classified reports whether err already carries one of the service error classes
func Classified(err error) bool {
	return lo.ContainsBy([]error{
		ErrNotFound, ErrAlreadyExists, ErrValidation, ErrStorage,
		ErrPermissionDenied, ErrUnauthenticated, ErrUpstream,
	}, func(target error) bool { return errors.Is(err, target) })
}
