package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a read names a topic or user that does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when a write names a topic or question
	// that is not in the catalog. Nothing is written.
	ErrInvalidReference = errors.New("invalid topic or question reference")
	// ErrInvalidField is returned for an unrecognized update field.
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidValue is returned when the update value has the wrong type
	// for its field.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnauthenticated is returned when an operation needs a user identity
	// and none was supplied.
	ErrUnauthenticated = errors.New("user identity required")
	// ErrStoreUnavailable wraps any failure of the underlying stores.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
