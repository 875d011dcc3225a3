package main

import (
	"context"
	"os"
	"time"

	"dmo/internal/amqp"
	"dmo/internal/cli"
	"dmo/internal/config"
	"dmo/internal/export"
	gsheet "dmo/internal/export/google"
	"dmo/internal/log"
	"dmo/internal/services"
	"dmo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting dmo-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendResult := cli.InitBackend(context.Background(), logger, cfg)
	if backendResult.Cleanup != nil {
		defer backendResult.Cleanup()
	}
	service := services.NewDmoService(backendResult.Backend, nil, logger.Logger)

	// Sheets export is optional; without it events are consumed and dropped
	// so the queue does not grow unbounded.
	var writer export.CompletionWriter
	var digest export.DigestWriter
	if cfg.GoogleSpreadsheetID != "" && !cfg.ExportDisabled {
		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer, digest = sheetsClient, sheetsClient
		logger.Info("Google Sheets export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(service, writer, digest)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	go func() {
		handler := func(ev *amqp.CompletionEvent) error {
			if writer == nil {
				return nil
			}
			return exportWorker.HandleCompletionEvent(ctx, ev)
		}
		if err := amqpClient.ConsumeCompletions(ctx, handler); err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
	}()

	if digest != nil {
		clockOffset, err := config.ParseClock(cfg.DigestTime)
		if err == nil {
			go func() {
				if err := exportWorker.RunDigestLoop(ctx, clockOffset); err != nil && err != context.Canceled {
					logger.Error("Digest loop failed", "error", err)
				}
			}()
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
