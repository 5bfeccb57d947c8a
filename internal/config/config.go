// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Blob backends selectable with BLOB_BACKEND. Object storage is chosen by
// the presence of BLOB_ACCESS_KEY_ID instead.
const (
	BlobBackendDisk     = "disk"
	BlobBackendDatabase = "database"
)

// Config is the full runtime configuration.
type Config struct {
	Port     string `mapstructure:"port"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	DatabaseURL string `mapstructure:"database_url"`

	UploadDir           string `mapstructure:"upload_dir"`
	BlobBackend         string `mapstructure:"blob_backend"`
	BlobAccessKeyID     string `mapstructure:"blob_access_key_id"`
	BlobSecretAccessKey string `mapstructure:"blob_secret_access_key"`
	BlobBucket          string `mapstructure:"blob_bucket"`
	BlobRegion          string `mapstructure:"blob_region"`
	BlobEndpoint        string `mapstructure:"blob_endpoint"`
	BlobPublicURL       string `mapstructure:"blob_public_url"`

	MaxFileSize    int64 `mapstructure:"max_file_size"`
	MaxRequestSize int64 `mapstructure:"max_request_size"`

	// UploadRateLimit is uploads per minute per client; zero disables it.
	UploadRateLimit float64 `mapstructure:"upload_rate_limit"`
	UploadBurst     int     `mapstructure:"upload_burst"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Production reports whether the process runs in production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// UseObjectStorage reports whether uploads go to S3-compatible storage.
func (c *Config) UseObjectStorage() bool {
	return c.BlobAccessKeyID != ""
}

var defaults = map[string]any{
	"port":                   "8080",
	"app_env":                "development",
	"log_level":              "info",
	"database_url":           "",
	"upload_dir":             "uploads",
	"blob_backend":           BlobBackendDisk,
	"blob_access_key_id":     "",
	"blob_secret_access_key": "",
	"blob_bucket":            "",
	"blob_region":            "us-east-1",
	"blob_endpoint":          "",
	"blob_public_url":        "",
	"max_file_size":          int64(50 << 20),
	"max_request_size":       int64(512 << 20),
	"upload_rate_limit":      30.0,
	"upload_burst":           10,
	"request_timeout":        60 * time.Second,
	"shutdown_timeout":       5 * time.Second,
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// file, its values sit between the defaults and the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.BlobBackend {
	case BlobBackendDisk:
	case BlobBackendDatabase:
		if c.DatabaseURL == "" && !c.UseObjectStorage() {
			errs = append(errs, errors.New("BLOB_BACKEND=database requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND %q is not one of disk, database", c.BlobBackend))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if c.MaxRequestSize < c.MaxFileSize {
		errs = append(errs, errors.New("MAX_REQUEST_SIZE must be at least MAX_FILE_SIZE"))
	}
	if c.UploadRateLimit < 0 {
		errs = append(errs, errors.New("UPLOAD_RATE_LIMIT must not be negative"))
	}
	if c.UploadRateLimit > 0 && c.UploadBurst < 1 {
		errs = append(errs, errors.New("UPLOAD_BURST must be at least 1 when rate limiting is on"))
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
