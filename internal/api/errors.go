package api

import (
	"alcyxob/composer/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	codeNotFound         = "not_found"
	codeValidation       = "validation_error"
	codeUnsupportedMedia = "unsupported_media"
	codeStorageFault     = "storage_fault"
)

// respondError maps a service error onto a status code and a structured body.
// Unclassified errors are reported as storage faults and recorded on the
// context, where RequestLogger picks them up.
func respondError(c *gin.Context, err error) {
	var unsupported *service.UnsupportedMediaError
	switch {
	case errors.Is(err, service.ErrCompositionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Media not found", "code": codeNotFound})
	case errors.As(err, &unsupported):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  unsupported.Error(),
			"code":   codeUnsupportedMedia,
			"reason": string(unsupported.Reason),
		})
	case errors.Is(err, service.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeValidation})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": codeStorageFault})
	}
}

func respondUnsupported(c *gin.Context, reason service.UnsupportedMediaReason, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":  (&service.UnsupportedMediaError{Reason: reason, Detail: detail}).Error(),
		"code":   codeUnsupportedMedia,
		"reason": string(reason),
	})
}

func respondValidation(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "code": codeValidation})
}
