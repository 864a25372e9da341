package httpapi

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable,omitempty"`
	} `json:"error"`
}

// statusOf maps the core error taxonomy to an HTTP status and a stable code
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, model.ErrPolicy):
		return http.StatusForbidden, "policy"
	case errors.Is(err, model.ErrAvailability):
		return http.StatusConflict, "availability"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrLockTimeout):
		return http.StatusServiceUnavailable, "lock_timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// abortWithError writes the error response. Internal errors keep their detail out of the body;
// the original error stays on the context for the request logger.
func abortWithError(c *gin.Context, err error) {
	status, code := statusOf(err)

	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Retryable = model.IsRetryable(err)
	if status == http.StatusInternalServerError {
		resp.Error.Message = "Internal server error"
	} else {
		resp.Error.Message = model.UserMessage(err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	abortWithError(c, model.ValidationError(msg))
}
