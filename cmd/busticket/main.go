package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"busticket/internal/backend"
	"busticket/internal/cache"
	"busticket/internal/cli"
	"busticket/internal/extract"
	apphttp "busticket/internal/http"
	"busticket/internal/ledger"
	"busticket/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store, err := ledger.Open(startCtx, res.KV, ledger.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	if res.Publisher != nil {
		store.Subscribe(res.Publisher)
	}

	var opts []apphttp.Option
	if cfg.ExtractionEnabled() {
		model, err := extract.NewGeminiModel(startCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", log.FieldError, err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		extractor := extract.NewExtractor(model, cfg.ExtractTimeout, logger)
		opts = append(opts, apphttp.WithSyncer(extract.NewSyncer(extractor, store)))
		logger.Info("Smart Sync enabled", "model", model.Name(), "timeout", cfg.ExtractTimeout)
	} else {
		logger.Info("Smart Sync disabled - no GEMINI_API_KEY provided")
	}

	reports := cache.NewMonthlyReports(store, cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(reports)
	cacheManager.StartCleanup(cfg.ReportCacheTTL)
	opts = append(opts, apphttp.WithReports(reports))

	srv, err := apphttp.NewServer(":"+cfg.Port, store, logger, opts...)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	// Smart Sync waits on the model.
	srv.WriteTimeout = cfg.ExtractTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting busticket server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
