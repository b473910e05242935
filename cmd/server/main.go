package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/txrecover/internal/config"
	"github.com/JonMunkholm/txrecover/internal/core"
	"github.com/JonMunkholm/txrecover/internal/logging"
	"github.com/JonMunkholm/txrecover/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"workers", cfg.Parse.Workers,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"store_capacity", cfg.Store.Capacity,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	vocab, err := loadVocabulary(cfg.Parse.VocabularyFile)
	if err != nil {
		slog.Error("failed to load vocabulary", "error", err)
		os.Exit(1)
	}
	slog.Info("vocabulary loaded",
		"providers", len(vocab.Providers()),
		"regions", len(vocab.Regions()),
	)

	core.AnalysisTimeout = cfg.Upload.Timeout
	service := core.NewService(
		core.ParseOptions{
			Vocabulary:        vocab,
			Workers:           cfg.Parse.Workers,
			MaxBytes:          cfg.Upload.MaxFileSize,
			CanonicalMessages: cfg.Parse.CanonicalMessages,
		},
		core.NewAnalysisLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		core.NewReportStore(cfg.Store.Capacity, cfg.Store.TTL),
	)

	server := web.NewServer(service, cfg)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go func() {
		if err := service.StartStoreJanitor(janitorCtx, cfg.Store.SweepSchedule); err != nil {
			slog.Error("store janitor not started", "error", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		stopJanitor()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running analyses to complete (with timeout)
		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for analyses to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("analyses did not complete in time", "error", err)
			} else {
				slog.Info("all analyses completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func loadVocabulary(path string) (*core.Vocabulary, error) {
	if path == "" {
		return core.DefaultVocabulary(), nil
	}
	return core.LoadVocabulary(path)
}
