package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the domain error taxonomy to HTTP. Internal failures are
// reported without their cause.
func writeError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		invalid    *domain.InvalidStateError
		authz      *domain.AuthorizationError
		transient  *domain.TransientError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "VALIDATION_ERROR"})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorBody{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorBody{Error: err.Error(), Code: "BOOKING_CONFLICT"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, errorBody{Error: err.Error(), Code: "INVALID_STATE"})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, errorBody{Error: err.Error(), Code: "FORBIDDEN"})
	case errors.As(err, &transient):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "booking is busy, retry shortly", Code: "TRY_AGAIN"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "INTERNAL_ERROR"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: msg, Code: "VALIDATION_ERROR"})
}
