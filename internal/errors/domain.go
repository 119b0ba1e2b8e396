package errors

import (
	stderrors "errors"

	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/views"
	"github.com/zfogg/sidechain/views/internal/visibility"
)

// FromDomain maps service-layer errors onto API errors. Unknown errors
// become INTERNAL_ERROR without leaking their text.
func FromDomain(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var fieldErr *visibility.FieldError
	if stderrors.As(err, &fieldErr) {
		return ValidationError(fieldErr.Field, "must be a valid UUID")
	}

	switch {
	case stderrors.Is(err, views.ErrPostNotFound):
		return NotFound("post")
	case stderrors.Is(err, repository.ErrUserNotFound):
		return NotFound("user")
	case stderrors.Is(err, views.ErrViewerNotFound):
		return Unauthorized("viewer account no longer exists")
	case stderrors.Is(err, visibility.ErrForbidden):
		return Forbidden("you can only change your own settings")
	case stderrors.Is(err, visibility.ErrInvalidID):
		return ValidationError("id", "must be a valid UUID")
	case stderrors.Is(err, repository.ErrInvalidInput):
		return BadRequest("invalid input")
	case stderrors.Is(err, repository.ErrStorageUnavailable):
		return ServiceUnavailable("storage")
	}
	return InternalError("unexpected error")
}
