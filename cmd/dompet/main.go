package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"dompet/internal/backend"
	"dompet/internal/cache"
	"dompet/internal/cli"
	"dompet/internal/config"
	apphttp "dompet/internal/http"
	"dompet/internal/log"
	"dompet/internal/payroll"
	"dompet/internal/services"
)

func main() {
	cfg, logger := cli.MustLoadConfig()

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}

	// Closes the store and the publisher.
	ledger := services.NewLedgerService(res.Store, res.Publisher(), logger)
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	calc := services.NewPayrollService(payroll.NewEngine(cfg.GoldPrice()), cfg.CacheSize, cfg.CacheTTL, logger)
	caches := cache.NewManager(logger)
	caches.Register(calc.Cache())
	caches.StartCleanup(cfg.CacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, ledger, calc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting dompet server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", res.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
