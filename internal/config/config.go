package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "COMPOSER"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all configuration for the application.
// Values come from defaults, an optional config file, COMPOSER_* environment
// variables and command line flags, in increasing precedence.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	S3       S3Config       `mapstructure:"s3"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type StorageConfig struct {
	Driver      string        `mapstructure:"driver"`
	LocalPath   string        `mapstructure:"local_path"`
	CacheMaxAge time.Duration `mapstructure:"cache_max_age"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

type UploadConfig struct {
	MaxFileSize   int64 `mapstructure:"max_file_size"`
	MaxFiles      int   `mapstructure:"max_files"`
	RatePerMinute int   `mapstructure:"rate_per_minute"`
}

// AuthConfig enables bearer-token checks on mutating routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "mediaeditor")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.local_path", "./uploads")
	v.SetDefault("storage.cache_max_age", "24h")
	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("upload.max_file_size", 100*1024*1024)
	v.SetDefault("upload.max_files", 2)
	v.SetDefault("upload.rate_per_minute", 60)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("debug.enabled", false)
}

// Load unmarshals and validates configuration from viper.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	if strings.TrimSpace(c.Database.URI) == "" {
		return fmt.Errorf("database.uri is required")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.Storage.LocalPath) == "" {
			return fmt.Errorf("storage.local_path is required for the local driver")
		}
	case StorageDriverS3:
		if strings.TrimSpace(c.S3.BucketName) == "" {
			return fmt.Errorf("s3.bucket_name is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("upload.max_files must be positive")
	}
	return nil
}
