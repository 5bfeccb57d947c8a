package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/gohans-journey/internal/blob"
	"github.com/msomdec/gohans-journey/internal/config"
	"github.com/msomdec/gohans-journey/internal/handler"
	"github.com/msomdec/gohans-journey/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.LogLevel, os.Stdout, os.Stderr))

	db := newDatabase(cfg)
	if db != nil {
		defer db.Close()
	}

	files, err := newFileStore(cfg, db)
	if err != nil {
		slog.Error("failed to set up blob storage", "error", err)
		os.Exit(1)
	}

	mediaRepo := newMediaRepository(db)
	sink := blob.NewSink(files, blob.WithMaxFileSize(cfg.MaxFileSize))

	ingestService := service.NewIngestService(mediaRepo, sink)
	timelineService := service.NewTimelineService(mediaRepo)

	opts := handler.Options{
		MaxRequestSize:     cfg.MaxRequestSize,
		ExposeErrorDetails: !cfg.Production(),
	}
	if cfg.UploadRateLimit > 0 {
		opts.UploadLimiter = service.NewTokenBucket(cfg.UploadRateLimit/60, float64(cfg.UploadBurst))
	}
	mediaHandler := handler.NewMediaHandler(ingestService, timelineService, sink, opts)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, mediaHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.LogRequests(handler.SecurityHeaders(handler.WithTimeout(cfg.RequestTimeout, mux))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
