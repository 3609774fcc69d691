package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 success response for background work.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusBadRequest, "INVALID_DOCUMENT", err.Error()
	case errors.Is(err, domain.ErrJobAlreadyRunning):
		return http.StatusConflict, "JOB_ALREADY_RUNNING", "an extraction job is already running"
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "JOB_NOT_FOUND", "no extraction job found"
	case errors.Is(err, domain.ErrJobTerminal):
		return http.StatusConflict, "JOB_TERMINAL", "job has already finished"
	case errors.Is(err, domain.ErrJobRunning):
		return http.StatusConflict, "JOB_RUNNING", "operation not allowed while a job is running"
	case errors.Is(err, domain.ErrPromptNotFound):
		return http.StatusNotFound, "PROMPT_NOT_FOUND", "prompt version not found"
	case errors.Is(err, domain.ErrNoRows):
		return http.StatusNotFound, "NO_ROWS", "no compiled rows available for this job"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, log *zap.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Error("internal error", zap.Any("request_id", requestID), zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
