package handler

import (
	"errors"
	"net/http"

	"phishing-admin/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyReviewed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {error} for err. Server-side failures get the generic
// message; client errors carry the service message.
func abortWithError(c *gin.Context, err error, generic string) {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": generic})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
