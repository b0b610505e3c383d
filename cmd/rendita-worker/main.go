package main

import (
	"os"
	"time"

	"rendita/internal/amqp"
	"rendita/internal/backend"
	"rendita/internal/cli"
	"rendita/internal/log"
	"rendita/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting rendita-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == string(backend.SheetsBackend) {
		logger.Error("The mirror worker copies into Google Sheets; pick another primary DATA_BACKEND")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" || !cfg.HasGoogleCredentials() {
		logger.Error("GOOGLE_SPREADSHEET_ID and service account credentials are required by the mirror worker")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	source := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := source.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	target, err := backend.NewFactory(logger).CreateBackend(ctx, backend.SheetsConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror target", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror target initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP_URL not set, mirroring on the interval only", "interval", cfg.MirrorInterval.String())
	}

	mirror := worker.NewMirrorWorker(source.Backend, target.Backend, logger)
	if err := mirror.Run(ctx, consumer, cfg.MirrorInterval); err != nil && ctx.Err() == nil {
		logger.Error("Mirror worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if rev, ok := mirror.LastMirrored(); ok {
		logger.Info("Worker stopped gracefully", log.FieldRevision, rev)
		return
	}
	logger.Info("Worker stopped gracefully")
}
