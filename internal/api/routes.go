package api

import (
	"alcyxob/composer/internal/service"
	"alcyxob/composer/internal/storage"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingCompositionService = errors.New("composition service dependency required")
	errMissingAttachmentService  = errors.New("attachment service dependency required")
	errMissingFileStorage        = errors.New("file storage dependency required")
	errInvalidFrontendURL        = errors.New("frontend url must start with http:// or https://")
)

// Dependencies wires the router. Tokens may be nil, in which case mutating
// routes are open.
type Dependencies struct {
	Compositions service.CompositionService
	Attachments  service.AttachmentService
	Files        storage.FileStorage
	Tokens       TokenValidator
	Health       HealthChecker
	Logger       *zap.Logger

	FrontendURL         string
	Limits              UploadLimits
	UploadRatePerMinute int
	DebugEnabled        bool
}

func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Compositions == nil {
		return nil, errMissingCompositionService
	}
	if deps.Attachments == nil {
		return nil, errMissingAttachmentService
	}
	if deps.Files == nil {
		return nil, errMissingFileStorage
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Limits.MaxFileSize <= 0 {
		deps.Limits.MaxFileSize = service.DefaultMaxFileSize
	}
	if deps.Limits.MaxFiles <= 0 {
		deps.Limits.MaxFiles = 2
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if deps.FrontendURL == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		if !strings.HasPrefix(deps.FrontendURL, "http://") && !strings.HasPrefix(deps.FrontendURL, "https://") {
			return nil, errInvalidFrontendURL
		}
		corsConfig.AllowOrigins = []string{strings.TrimSuffix(deps.FrontendURL, "/")}
		corsConfig.AllowCredentials = true
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(corsConfig))

	compositionHandler := NewCompositionHandler(deps.Compositions)
	uploadHandler := NewUploadHandler(deps.Attachments, deps.Limits)
	filesHandler := NewFilesHandler(deps.Files, deps.Health, logger)

	writeGuard := func(c *gin.Context) { c.Next() }
	if deps.Tokens != nil {
		writeGuard = AuthMiddleware(deps.Tokens)
	}
	uploadLimiter := RateLimitMiddleware(deps.UploadRatePerMinute)

	router.GET("/uploads/:kind/:filename", filesHandler.ServeUpload)
	router.HEAD("/uploads/:kind/:filename", filesHandler.ServeUpload)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", filesHandler.Health)
		if deps.DebugEnabled {
			apiGroup.GET("/debug/files", filesHandler.ListFiles)
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.GET("", compositionHandler.ListCompositions)
			mediaGroup.GET("/:id", compositionHandler.GetComposition)
			mediaGroup.POST("", writeGuard, compositionHandler.CreateComposition)
			mediaGroup.PUT("/:id", writeGuard, compositionHandler.UpdateComposition)
			mediaGroup.DELETE("/:id", writeGuard, compositionHandler.DeleteComposition)
			mediaGroup.POST("/:id/add-media", writeGuard, uploadLimiter, uploadHandler.AttachMedia)
		}

		apiGroup.POST("/upload", writeGuard, uploadLimiter, uploadHandler.BulkUpload)
	}

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "Endpoint not found")
	})

	return router, nil
}
