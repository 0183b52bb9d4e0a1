package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roomtrack/internal/core"
	"roomtrack/pkg/domain"
)

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), domain.IsUnknownLocation(err), errors.Is(err, domain.ErrInvalidPath):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, core.ErrExportsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
