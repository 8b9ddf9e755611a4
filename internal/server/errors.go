package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"crewdesk/internal/model"
	"crewdesk/internal/service"
)

// respondError standardises error responses.
func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondServiceError picks the status for a service error.
func respondServiceError(c *gin.Context, err error) {
	respondError(c, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrProofRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrExtensionLimit),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
