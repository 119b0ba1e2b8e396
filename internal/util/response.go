package util

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/errors"
	"github.com/zfogg/sidechain/views/internal/logger"
	"go.uber.org/zap"
)

// RetryAfterSeconds is sent with retryable errors
const RetryAfterSeconds = 1

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	requestID := c.GetString("request_id")

	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.FullPath()),
			logger.WithRequestID(requestID),
			logger.WithStatus(apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
			logger.WithRequestID(requestID),
		)
	}

	if apiErr.Retryable {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:      string(apiErr.Code),
		Message:   apiErr.Message,
		Field:     apiErr.Field,
		Details:   apiErr.Details,
		Retryable: apiErr.Retryable,
	})
}

// RespondError maps a service error to its API error and sends it
func RespondError(c *gin.Context, err error) {
	apiErr := errors.FromDomain(err)
	if apiErr.Code == errors.ErrInternalError || apiErr.Code == errors.ErrServiceUnavail {
		logger.Log.Error("Request failed",
			zap.Error(err),
			logger.WithRequestID(c.GetString("request_id")),
		)
	}
	RespondWithAPIError(c, apiErr)
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondValidationError sends a 422 Unprocessable Entity response
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
