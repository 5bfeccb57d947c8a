package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/msomdec/gohans-journey/internal/blob"
	"github.com/msomdec/gohans-journey/internal/config"
	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/repository/memory"
	"github.com/msomdec/gohans-journey/internal/repository/sqlite"
)

// newLogger writes text to stdout and JSON to stderr at the configured level.
func newLogger(level string, stdout, stderr io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	return slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(stdout, opts),
		slog.NewJSONHandler(stderr, opts),
	))
}

// newDatabase returns the lazily opened database, or nil when no
// DATABASE_URL is configured.
func newDatabase(cfg *config.Config) *sqlite.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	return sqlite.New(cfg.DatabaseURL)
}

// newMediaRepository picks the durable store when a database is configured
// and the process-local store otherwise.
func newMediaRepository(db *sqlite.DB) domain.MediaRepository {
	if db == nil {
		slog.Warn("DATABASE_URL not set, media records are kept in memory and lost on restart")
		return memory.NewMediaRepo()
	}
	return db.Media()
}

// newFileStore picks the blob backend: object storage when credentials are
// present, the database when requested, local disk otherwise.
func newFileStore(cfg *config.Config, db *sqlite.DB) (domain.FileStore, error) {
	switch {
	case cfg.UseObjectStorage():
		slog.Info("blob backend", "backend", "s3", "bucket", cfg.BlobBucket, "endpoint", cfg.BlobEndpoint)
		return blob.NewS3Store(blob.S3Config{
			Bucket:          cfg.BlobBucket,
			Region:          cfg.BlobRegion,
			Endpoint:        cfg.BlobEndpoint,
			AccessKeyID:     cfg.BlobAccessKeyID,
			SecretAccessKey: cfg.BlobSecretAccessKey,
			PublicBaseURL:   cfg.BlobPublicURL,
		}), nil
	case cfg.BlobBackend == config.BlobBackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("%w: BLOB_BACKEND=database requires DATABASE_URL", domain.ErrNotConfigured)
		}
		slog.Info("blob backend", "backend", "database")
		return db.FileStore(), nil
	default:
		store, err := blob.NewDiskStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		slog.Info("blob backend", "backend", "disk", "dir", store.Dir())
		return store, nil
	}
}
