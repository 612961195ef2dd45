package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"busticket/internal/amqp"
	"busticket/internal/cli"
	"busticket/internal/config"
	"busticket/internal/ledger"
	"busticket/internal/log"
	"busticket/internal/sheets"
	gsheet "busticket/internal/sheets/google"
	"busticket/internal/sheets/memory"
	"busticket/internal/storage"
	"busticket/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	startCtx := context.Background()

	mirror, err := newMirror(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err)
		os.Exit(1)
	}
	mirrorWorker := worker.NewMirrorWorker(mirror, logger)

	// With a shared SQLite file, entries written while the worker was down
	// are copied over before consuming.
	if cfg.DataBackend == config.BackendSQLite {
		if err := backfill(startCtx, cfg, logger, mirrorWorker); err != nil {
			logger.Error("Mirror backfill failed", log.FieldError, err)
		}
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mirrorWorker.Run(gctx, amqpClient)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Ledger worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.LedgerMirror, error) {
	if !cfg.MirrorEnabled() {
		logger.Info("Google Sheets disabled - mirroring into memory")
		return memory.New(), nil
	}

	client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}

func backfill(ctx context.Context, cfg *config.Config, logger *log.Logger, w *worker.MirrorWorker) error {
	kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath, storage.WithSQLiteLogger(logger))
	if err != nil {
		return err
	}
	defer kv.Close()

	store, err := ledger.Open(ctx, kv, ledger.WithLogger(logger))
	if err != nil {
		return err
	}
	tickets, expenses, _ := store.Snapshot()
	return w.Backfill(ctx, tickets, expenses)
}
