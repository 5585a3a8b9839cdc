package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, "http://localhost:3000", cfg.Server.FrontendURL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "mediaeditor", cfg.Database.Name)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Storage.CacheMaxAge)
	assert.Equal(t, int64(104857600), cfg.Upload.MaxFileSize)
	assert.Equal(t, 2, cfg.Upload.MaxFiles)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Debug.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("COMPOSER_SERVER_ADDRESS", ":9999")
	t.Setenv("COMPOSER_STORAGE_DRIVER", "S3")
	t.Setenv("COMPOSER_S3_BUCKET_NAME", "media")
	t.Setenv("COMPOSER_UPLOAD_MAX_FILE_SIZE", "2048")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, "media", cfg.S3.BucketName)
	assert.Equal(t, int64(2048), cfg.Upload.MaxFileSize)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		msg  string
	}{
		{"unknown driver", "storage.driver", "ftp", "unknown storage.driver"},
		{"s3 without bucket", "storage.driver", "s3", "s3.bucket_name"},
		{"zero max size", "upload.max_file_size", 0, "upload.max_file_size"},
		{"zero max files", "upload.max_files", 0, "upload.max_files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
