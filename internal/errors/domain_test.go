package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/views"
	"github.com/zfogg/sidechain/views/internal/visibility"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
		field  string
	}{
		{"post not found", views.ErrPostNotFound, ErrNotFound, http.StatusNotFound, ""},
		{"user not found", fmt.Errorf("load: %w", repository.ErrUserNotFound), ErrNotFound, http.StatusNotFound, ""},
		{"forbidden", visibility.ErrForbidden, ErrForbidden, http.StatusForbidden, ""},
		{"invalid id", &visibility.FieldError{Field: "postId", Err: visibility.ErrInvalidID}, ErrValidation, http.StatusUnprocessableEntity, "postId"},
		{"storage", fmt.Errorf("%w: dial tcp", views.ErrStorageUnavailable), ErrServiceUnavail, http.StatusServiceUnavailable, ""},
		{"unknown", fmt.Errorf("boom"), ErrInternalError, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromDomain(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.field, apiErr.Field)
		})
	}
}

func TestFromDomainStorageIsRetryable(t *testing.T) {
	apiErr := FromDomain(views.ErrStorageUnavailable)
	assert.True(t, apiErr.Retryable)
	assert.NotContains(t, apiErr.Message, "dial")
}

func TestFromDomainPassesAPIErrorsThrough(t *testing.T) {
	orig := BadRequest("bad body")
	assert.Same(t, orig, FromDomain(fmt.Errorf("wrap: %w", orig)))
	assert.Nil(t, FromDomain(nil))
}
