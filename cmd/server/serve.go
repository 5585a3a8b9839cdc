package main

import (
	"alcyxob/composer/internal/api"
	"alcyxob/composer/internal/auth"
	"alcyxob/composer/internal/config"
	"alcyxob/composer/internal/logging"
	"alcyxob/composer/internal/repository/mongo"
	"alcyxob/composer/internal/service"
	"alcyxob/composer/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	indexTimeout    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.Debug.Enabled {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect mongodb", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connected", zap.String("database", cfg.Database.Name))

	indexCtx, cancelIndex := context.WithTimeout(ctx, indexTimeout)
	err = mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndex()
	if err != nil {
		return err
	}

	// --- Storage ---
	fileStorage, err := newFileStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// --- Services ---
	compositionRepo := mongo.NewMongoCompositionRepository(appDB)
	compositionService := service.NewCompositionService(compositionRepo, fileStorage, logger)
	attachmentService := service.NewAttachmentService(compositionRepo, fileStorage, service.AttachmentConfig{
		MaxFileSize: cfg.Upload.MaxFileSize,
		Clock:       time.Now,
	}, logger)

	deps := api.Dependencies{
		Compositions: compositionService,
		Attachments:  attachmentService,
		Files:        fileStorage,
		Health: func(ctx context.Context) error {
			return mongo.Ping(ctx, dbClient)
		},
		Logger:              logger,
		FrontendURL:         cfg.Server.FrontendURL,
		Limits:              api.UploadLimits{MaxFileSize: cfg.Upload.MaxFileSize, MaxFiles: cfg.Upload.MaxFiles},
		UploadRatePerMinute: cfg.Upload.RatePerMinute,
		DebugEnabled:        cfg.Debug.Enabled,
	}
	if cfg.Auth.JWTSecret != "" {
		tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, time.Now)
		if err != nil {
			return err
		}
		deps.Tokens = tokens
	} else {
		logger.Warn("auth.jwt_secret is empty; mutating routes are unauthenticated")
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		return err
	}

	// --- HTTP Server ---
	// Uploads of up to max_files * max_file_size need a generous body window.
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", cfg.Server.Address),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("auth", deps.Tokens != nil))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newFileStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.FileStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		logger.Info("using s3 storage", zap.String("bucket", cfg.S3.BucketName))
		return storage.NewS3Storage(ctx, cfg.S3, cfg.Storage.CacheMaxAge, logger)
	default:
		logger.Info("using local storage", zap.String("path", cfg.Storage.LocalPath))
		return storage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.CacheMaxAge)
	}
}
