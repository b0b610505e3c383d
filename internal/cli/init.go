// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/rendita, cmd/rendita-worker and cmd/renditactl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rendita/internal/analysis"
	"rendita/internal/backend"
	"rendita/internal/config"
	"rendita/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Call it after LoadEnvFile.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Component: component,
		Handler:   log.NewHandler(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured portfolio backend.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	result, err := OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// OpenBackend creates the configured primary backend and returns any failure
// to the caller.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}
	return result, nil
}

// NewAnalyzer returns the Gemini analyzer when an API key is configured and
// analysis.Disabled otherwise.
func NewAnalyzer(ctx context.Context, logger *log.Logger, cfg *config.Config) analysis.Analyzer {
	if !cfg.AnalysisEnabled() {
		logger.Info("GEMINI_API_KEY not set, AI analysis disabled")
		return analysis.Disabled{}
	}
	gemini, err := analysis.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("Failed to initialize Gemini client, AI analysis disabled", log.FieldError, err)
		return analysis.Disabled{}
	}
	logger.Info("AI analysis enabled", "model", cfg.GeminiModel)
	return gemini
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
