package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"rendita/internal/amqp"
	"rendita/internal/cache"
	"rendita/internal/cli"
	apphttp "rendita/internal/http"
	"rendita/internal/log"
	"rendita/internal/services"
	"rendita/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = client
		publisher = client
		logger.Info("AMQP change feed enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, change feed disabled")
	}

	portfolio := services.NewPortfolioService(result.Backend, publisher, logger, services.PortfolioOptions{
		Currency:       cfg.Currency,
		DefaultHorizon: cfg.DefaultHorizon,
		Backend:        cfg.DataBackend,
	})
	analysisSvc := services.NewAnalysisService(portfolio, cli.NewAnalyzer(ctx, logger, cfg), cfg.AnalysisCacheTTL, logger)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(analysisSvc.Cache())
	cacheManager.StartCleanup(time.Minute)

	deps := apphttp.Dependencies{
		Portfolio: portfolio,
		Analysis:  analysisSvc,
	}
	if p, ok := result.Backend.(store.Pinger); ok {
		deps.Pinger = p
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, logger)
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting rendita server", log.FieldOperation, log.OpStartup,
		"port", cfg.Port, log.FieldBackend, cfg.DataBackend,
		"currency", cfg.Currency, log.FieldHorizon, cfg.DefaultHorizon)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
