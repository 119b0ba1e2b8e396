package visibility

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/views"
)

var (
	// ErrInvalidID is wrapped by FieldError for malformed identifiers
	ErrInvalidID = errors.New("invalid identifier")
	// ErrForbidden is returned when a caller mutates another user's data
	ErrForbidden = errors.New("not allowed to modify another user's data")
)

// FieldError names the input that failed validation
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &FieldError{Field: field, Err: ErrInvalidID}
	}
	return nil
}

// storageError passes domain errors through and marks anything else retryable
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, views.ErrPostNotFound),
		errors.Is(err, views.ErrViewerNotFound),
		errors.Is(err, repository.ErrStorageUnavailable),
		errors.Is(err, repository.ErrInvalidInput):
		return err
	}
	return fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
}
