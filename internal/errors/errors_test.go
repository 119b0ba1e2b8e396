package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"not found", NotFound("post"), http.StatusNotFound, ErrNotFound},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, ErrForbidden},
		{"validation", ValidationError("id", "bad id"), http.StatusUnprocessableEntity, ErrValidation},
		{"unavailable", ServiceUnavailable("storage"), http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, ServiceUnavailable("storage").Retryable)
	assert.True(t, RateLimited("").Retryable)
	assert.False(t, NotFound("user").Retryable)
	assert.False(t, Forbidden("x").Retryable)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: post not found", NotFound("post").Error())
	assert.Equal(t, "VALIDATION_ERROR: bad (field: id)", ValidationError("id", "bad").Error())
}

func TestJSONOmitsStatus(t *testing.T) {
	b, err := json.Marshal(NotFound("user"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "NOT_FOUND", decoded["code"])
	assert.NotContains(t, decoded, "Status")
	assert.NotContains(t, decoded, "retryable")
}
