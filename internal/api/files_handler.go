package api

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/storage"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(ctx context.Context) error

type FilesHandler struct {
	files  storage.FileStorage
	health HealthChecker
	logger *zap.Logger
}

func NewFilesHandler(files storage.FileStorage, health HealthChecker, logger *zap.Logger) *FilesHandler {
	return &FilesHandler{files: files, health: health, logger: logger}
}

var mediaDirs = map[string]domain.MediaType{
	domain.MediaImage.Dir(): domain.MediaImage,
	domain.MediaVideo.Dir(): domain.MediaVideo,
}

// ServeUpload serves /uploads/{images|videos}/{filename} read-only.
func (h *FilesHandler) ServeUpload(c *gin.Context) {
	mediaType, ok := mediaDirs[c.Param("kind")]
	if !ok {
		abortWithError(c, http.StatusNotFound, "File not found")
		return
	}
	key := storage.ObjectKey{Type: mediaType, Filename: c.Param("filename")}

	if err := h.files.Serve(c.Writer, c.Request, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			abortWithError(c, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error("failed to serve upload", zap.String("key", key.Path()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to read file")
	}
}

// ListFiles reports the stored filenames per media kind.
func (h *FilesHandler) ListFiles(c *gin.Context) {
	result := gin.H{}
	for dir, mediaType := range mediaDirs {
		names, err := h.files.List(c.Request.Context(), mediaType)
		if err != nil {
			h.logger.Error("failed to list uploads", zap.String("kind", dir), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to list files")
			return
		}
		result[dir] = names
	}
	c.JSON(http.StatusOK, result)
}

// Health reports liveness and, when a checker is configured, store reachability.
func (h *FilesHandler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ERROR", "timestamp": now})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": now})
}
